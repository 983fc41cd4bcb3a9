package models

import (
	"fmt"
	"strings"
)

// VideoTokenRequest, video odasına katılmak için token isteği.
//
//	POST /api/token
//	{ "identity": "u1", "room": "video-call-u1-u2-..." }
type VideoTokenRequest struct {
	Identity string `json:"identity"`
	Room     string `json:"room"`
}

// Validate, VideoTokenRequest'in geçerli olup olmadığını kontrol eder.
func (r *VideoTokenRequest) Validate() error {
	r.Identity = strings.TrimSpace(r.Identity)
	r.Room = strings.TrimSpace(r.Room)
	if r.Identity == "" {
		return fmt.Errorf("identity is required")
	}
	if r.Room == "" {
		return fmt.Errorf("room is required")
	}
	return nil
}

// VideoTokenResponse, token endpoint'inin yanıtı.
// URL, client'ın bağlanacağı SFU adresidir.
type VideoTokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
	Room  string `json:"room"`
}

// CreateRoomRequest, iki kullanıcı için oda ismi üretme isteği.
type CreateRoomRequest struct {
	UserID1 string `json:"user_id_1"`
	UserID2 string `json:"user_id_2"`
}

// Validate, CreateRoomRequest'in geçerli olup olmadığını kontrol eder.
func (r *CreateRoomRequest) Validate() error {
	r.UserID1 = strings.TrimSpace(r.UserID1)
	r.UserID2 = strings.TrimSpace(r.UserID2)
	if r.UserID1 == "" || r.UserID2 == "" {
		return fmt.Errorf("both user ids are required")
	}
	return nil
}

// CreateRoomResponse, create-room endpoint'inin yanıtı.
type CreateRoomResponse struct {
	RoomName string `json:"room_name"`
}
