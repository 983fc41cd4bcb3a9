package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
	"github.com/doruhan/vira/services"
)

// VideoHandler, görüntülü arama HTTP endpoint'lerini yönetir.
type VideoHandler struct {
	videoService services.VideoService
}

// NewVideoHandler, yeni bir VideoHandler oluşturur.
func NewVideoHandler(videoService services.VideoService) *VideoHandler {
	return &VideoHandler{videoService: videoService}
}

// Token, video odasına katılmak için JWT token üretir.
//
//	POST /api/token
//	Request:  { "identity": "user-id", "room": "call-a-b-1f2e3d4c" }
//	Response: { "token": "eyJ...", "url": "wss://...", "room": "call-a-b-1f2e3d4c" }
//
// Identity, oturum token'ındaki kullanıcı ile eşleşmek zorundadır —
// başkası adına token alınamaz.
func (h *VideoHandler) Token(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(UserIDContextKey).(string)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.VideoTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Identity != userID {
		pkg.ErrorWithMessage(w, http.StatusForbidden, "identity does not match session")
		return
	}

	resp, err := h.videoService.MintToken(req.Identity, req.Room)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, resp)
}

// CreateRoom, iki kullanıcı için yeni bir oda ismi üretir.
//
//	POST /api/create-room
//	Request:  { "user_id_1": "a", "user_id_2": "b" }
//	Response: { "room_name": "call-a-b-1f2e3d4c" }
//
// Oda SFU'da önceden oluşturulmaz — ilk katılımda kendiliğinden açılır.
// Bu endpoint yalnızca isim üretir; isteyen kullanıcının çiftin parçası
// olması zorunludur.
func (h *VideoHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(UserIDContextKey).(string)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID1 != userID && req.UserID2 != userID {
		pkg.ErrorWithMessage(w, http.StatusForbidden, "caller is not part of the pair")
		return
	}

	roomName := h.videoService.RoomName(req.UserID1, req.UserID2)
	pkg.JSON(w, http.StatusOK, models.CreateRoomResponse{RoomName: roomName})
}
