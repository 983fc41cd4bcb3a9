package devserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// sessionValidity: oturum token'ının geçerlilik süresi.
// Geliştirme ortamında refresh akışı yoktur — süre dolunca yeniden login.
const sessionValidity = 24 * time.Hour

type signupRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSignup, yeni kullanıcı kaydeder.
//
//	POST /auth/v1/signup
//	Request:  { "username": "ayse", "password": "...", "display_name": "Ayşe" }
//	Response: { "access_token": "eyJ..." }
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	if len(req.Username) < 3 || len(req.Password) < 8 {
		s.writeError(w, http.StatusBadRequest, "username min 3, password min 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	userID := uuid.NewString()
	var displayName any
	if req.DisplayName != "" {
		displayName = req.DisplayName
	}
	_, err = s.db.ExecContext(r.Context(),
		`INSERT INTO users (id, username, display_name, password_hash) VALUES (?, ?, ?, ?)`,
		userID, req.Username, displayName, string(hash))
	if err != nil {
		s.writeError(w, http.StatusConflict, "username already taken")
		return
	}

	s.issueToken(w, userID)
}

// handleToken, kullanıcı adı + şifre ile oturum token'ı üretir.
//
//	POST /auth/v1/token
//	Request:  { "username": "ayse", "password": "..." }
//	Response: { "access_token": "eyJ..." }
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))

	var userID, hash string
	err := s.db.QueryRowContext(r.Context(),
		`SELECT id, password_hash FROM users WHERE username = ?`, req.Username).
		Scan(&userID, &hash)
	if err != nil {
		// Kullanıcı yok ile şifre yanlış aynı cevabı alır — enumeration engeli.
		s.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.issueToken(w, userID)
}

// handleCurrentUser, Bearer token'ın sahibini döner.
//
//	GET /auth/v1/user
//	Response: { "id": "...", "username": "...", "display_name": "...", "status": "online" }
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	user, err := s.loadProfile(r.Context(), userID)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "user not found")
		return
	}

	s.writeJSON(w, http.StatusOK, user)
}

// issueToken, HS256 imzalı oturum JWT'si üretip yazar.
func (s *Server) issueToken(w http.ResponseWriter, userID string) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionValidity)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

// authenticate, Authorization header'ındaki token'ı doğrular ve sub döner.
func (s *Server) authenticate(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errors.New("authorization header required")
	}
	return s.validateToken(strings.TrimPrefix(authHeader, "Bearer "))
}

// validateToken, imza + süre kontrolü yapar, sub claim'ini döner.
// Realtime handshake'i token'ı query param ile taşıdığı için ayrı fonksiyondur.
func (s *Server) validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("missing sub claim")
	}
	return sub, nil
}

// requireAuth, REST handler'larını token zorunluluğu ile sarar.
func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.authenticate(r)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r, userID)
	}
}

// ────────────────────────────────────────────
// Response yardımcıları
// ────────────────────────────────────────────

// REST yüzeyi düz JSON konuşur: başarıda kaynak gövdesi, hatada {"error": "..."}.
// Uygulamanın kendi API'sinden farklıdır — bu sözleşme platformun sözleşmesidir.

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// loadProfile, tek kullanıcıyı okur; status hub'daki bağlantı durumundan türetilir.
func (s *Server) loadProfile(ctx context.Context, userID string) (map[string]any, error) {
	var username string
	var displayName sql.NullString
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT username, display_name, created_at FROM users WHERE id = ?`, userID).
		Scan(&username, &displayName, &createdAt)
	if err != nil {
		return nil, err
	}

	return s.profileRow(userID, username, displayName, createdAt), nil
}

// profileRow, users satırını wire formatına çevirir.
func (s *Server) profileRow(id, username string, displayName sql.NullString, createdAt time.Time) map[string]any {
	status := "offline"
	if s.hub.IsOnline(id) {
		status = "online"
	}

	row := map[string]any{
		"id":         id,
		"username":   username,
		"status":     status,
		"created_at": createdAt,
	}
	if displayName.Valid {
		row["display_name"] = displayName.String
	}
	return row
}
