package devserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doruhan/vira/models"
)

// Filtre grameri: query string'deki her parametre (order hariç) bir eşitlik
// filtresidir — `kolon=eq.değer`. Filtreler AND ile birleşir. Desteklenmeyen
// kolon veya operatör 400 döner; sessizce yok saymak geliştirme sırasında
// yanlış sorguları gizlerdi.

// parseEqFilters, query parametrelerini kolon→değer map'ine çevirir.
func parseEqFilters(query url.Values, allowed map[string]bool) (map[string]string, error) {
	filters := make(map[string]string)
	for key, values := range query {
		if key == "order" {
			continue
		}
		if !allowed[key] {
			return nil, fmt.Errorf("unknown filter column: %s", key)
		}
		if len(values) == 0 || !strings.HasPrefix(values[0], "eq.") {
			return nil, fmt.Errorf("unsupported operator for %s, only eq. is supported", key)
		}
		filters[key] = strings.TrimPrefix(values[0], "eq.")
	}
	return filters, nil
}

// buildWhere, filtrelerden WHERE cümlesi ve arg listesi üretir.
// Kolon isimleri allowed set'inden geçtiği için injection riski yoktur;
// değerler her zaman placeholder ile bağlanır.
func buildWhere(filters map[string]string) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	var clauses []string
	var args []any
	for col, val := range filters {
		clauses = append(clauses, col+" = ?")
		args = append(args, val)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ────────────────────────────────────────────
// /rest/v1/messages
// ────────────────────────────────────────────

var messageColumns = map[string]bool{
	"id": true, "conversation_key": true, "sender_id": true, "receiver_id": true,
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request, userID string) {
	filters, err := parseEqFilters(r.URL.Query(), messageColumns)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	where, args := buildWhere(filters)
	query := `SELECT id, conversation_key, sender_id, receiver_id, content, created_at FROM messages` + where
	if r.URL.Query().Get("order") == "created_at.asc" {
		query += " ORDER BY created_at ASC, id ASC"
	}

	rows, err := s.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationKey, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt); err != nil {
			s.writeError(w, http.StatusInternalServerError, "scan failed")
			return
		}
		msgs = append(msgs, m)
	}

	s.writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleInsertMessage(w http.ResponseWriter, r *http.Request, userID string) {
	var m models.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if m.SenderID != userID {
		s.writeError(w, http.StatusForbidden, "sender_id must match session")
		return
	}
	if m.Content == "" || m.ReceiverID == "" || m.ConversationKey == "" {
		s.writeError(w, http.StatusBadRequest, "conversation_key, receiver_id and content are required")
		return
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(r.Context(),
		`INSERT INTO messages (id, conversation_key, sender_id, receiver_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationKey, m.SenderID, m.ReceiverID, m.Content, m.CreatedAt)
	if err != nil {
		s.writeError(w, http.StatusConflict, "insert failed")
		return
	}

	s.hub.BroadcastInsert("messages", m)
	s.writeJSON(w, http.StatusCreated, m)
}

// ────────────────────────────────────────────
// /rest/v1/call_notifications
// ────────────────────────────────────────────

var callColumns = map[string]bool{
	"id": true, "from_user_id": true, "to_user_id": true, "status": true,
}

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request, userID string) {
	filters, err := parseEqFilters(r.URL.Query(), callColumns)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	where, args := buildWhere(filters)
	query := `SELECT id, from_user_id, to_user_id, room_name, call_type, status, created_at
	          FROM call_notifications` + where

	rows, err := s.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	defer rows.Close()

	calls := []models.CallNotification{}
	for rows.Next() {
		var n models.CallNotification
		if err := rows.Scan(&n.ID, &n.FromUserID, &n.ToUserID, &n.RoomName, &n.CallType, &n.Status, &n.CreatedAt); err != nil {
			s.writeError(w, http.StatusInternalServerError, "scan failed")
			return
		}
		calls = append(calls, n)
	}

	s.writeJSON(w, http.StatusOK, calls)
}

func (s *Server) handleInsertCall(w http.ResponseWriter, r *http.Request, userID string) {
	var n models.CallNotification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if n.FromUserID != userID {
		s.writeError(w, http.StatusForbidden, "from_user_id must match session")
		return
	}
	if n.ToUserID == "" || n.RoomName == "" {
		s.writeError(w, http.StatusBadRequest, "to_user_id and room_name are required")
		return
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CallType == "" {
		n.CallType = models.CallTypeVideo
	}
	n.Status = models.CallStatusPending
	n.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(r.Context(),
		`INSERT INTO call_notifications (id, from_user_id, to_user_id, room_name, call_type, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.FromUserID, n.ToUserID, n.RoomName, n.CallType, n.Status, n.CreatedAt)
	if err != nil {
		s.writeError(w, http.StatusConflict, "insert failed")
		return
	}

	s.hub.BroadcastInsert("call_notifications", n)
	s.writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleUpdateCall(w http.ResponseWriter, r *http.Request, userID string) {
	filters, err := parseEqFilters(r.URL.Query(), map[string]bool{"id": true})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := filters["id"]
	if !ok {
		s.writeError(w, http.StatusBadRequest, "id filter is required")
		return
	}

	var patch struct {
		Status models.CallStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch patch.Status {
	case models.CallStatusAccepted, models.CallStatusRejected, models.CallStatusEnded:
	default:
		s.writeError(w, http.StatusBadRequest, "invalid status value")
		return
	}

	// Sadece aramanın tarafları durumu değiştirebilir.
	n, err := s.loadCall(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "call notification not found")
		return
	}
	if n.FromUserID != userID && n.ToUserID != userID {
		s.writeError(w, http.StatusForbidden, "caller is not part of the call")
		return
	}

	if _, err := s.db.ExecContext(r.Context(),
		`UPDATE call_notifications SET status = ? WHERE id = ?`, patch.Status, id); err != nil {
		s.writeError(w, http.StatusInternalServerError, "update failed")
		return
	}

	n.Status = patch.Status
	s.hub.BroadcastUpdate("call_notifications", *n)
	s.writeJSON(w, http.StatusOK, n)
}

// loadCall, tek bir call notification satırını okur.
func (s *Server) loadCall(ctx context.Context, id string) (*models.CallNotification, error) {
	var n models.CallNotification
	err := s.db.QueryRowContext(ctx,
		`SELECT id, from_user_id, to_user_id, room_name, call_type, status, created_at
		 FROM call_notifications WHERE id = ?`, id).
		Scan(&n.ID, &n.FromUserID, &n.ToUserID, &n.RoomName, &n.CallType, &n.Status, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ────────────────────────────────────────────
// /rest/v1/profiles
// ────────────────────────────────────────────

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request, userID string) {
	filters, err := parseEqFilters(r.URL.Query(), map[string]bool{"id": true, "username": true})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	where, args := buildWhere(filters)
	rows, err := s.db.QueryContext(r.Context(),
		`SELECT id, username, display_name, created_at FROM users`+where+` ORDER BY username ASC`, args...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	defer rows.Close()

	profiles := []map[string]any{}
	for rows.Next() {
		var id, username string
		var displayName sql.NullString
		var createdAt time.Time
		if err := rows.Scan(&id, &username, &displayName, &createdAt); err != nil {
			s.writeError(w, http.StatusInternalServerError, "scan failed")
			return
		}
		profiles = append(profiles, s.profileRow(id, username, displayName, createdAt))
	}

	s.writeJSON(w, http.StatusOK, profiles)
}
