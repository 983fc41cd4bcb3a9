package models

import "time"

// CallType, aramanın türünü temsil eder.
type CallType string

const (
	CallTypeVideo CallType = "video"
	CallTypeAudio CallType = "audio"
)

// CallStatus, bir call notification'ın yaşam döngüsündeki durumunu temsil eder.
type CallStatus string

const (
	CallStatusPending  CallStatus = "pending"
	CallStatusAccepted CallStatus = "accepted"
	CallStatusRejected CallStatus = "rejected"
	CallStatusEnded    CallStatus = "ended"
)

// CanTransition, status geçişinin ileri yönlü olup olmadığını kontrol eder.
//
// Geçiş grafiği: pending → {accepted, rejected} → ended.
// Sonlanmış bir arama (rejected/ended) hiçbir geçişle yeniden açılamaz.
func (s CallStatus) CanTransition(next CallStatus) bool {
	switch s {
	case CallStatusPending:
		return next == CallStatusAccepted || next == CallStatusRejected || next == CallStatusEnded
	case CallStatusAccepted:
		return next == CallStatusEnded
	default:
		// rejected ve ended terminal durumlardır
		return false
	}
}

// Terminal, aramanın sonlanmış olup olmadığını döner.
func (s CallStatus) Terminal() bool {
	return s == CallStatusRejected || s == CallStatusEnded
}

// CallNotification, iki kullanıcı arasındaki video/sesli arama davetini
// koordine eden signaling kaydıdır. Medya transportundan bağımsızdır —
// asıl görüntü/ses oturumu video provider'a devredilir.
//
// Kayıt caller tarafından oluşturulur; sonrasında sadece status alanı
// değişir (callee kabul/red, taraflardan biri sonlandırma). Append-only
// bir tablodur, satır silinmez.
type CallNotification struct {
	ID         string     `json:"id"`
	FromUserID string     `json:"from_user_id"`
	ToUserID   string     `json:"to_user_id"`
	RoomName   string     `json:"room_name"`
	CallType   CallType   `json:"call_type"`
	Status     CallStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`

	// FromUserName, caller'ın görünen ismi — user directory lookup'ı ile
	// doldurulur, provider tablosunda yoktur.
	FromUserName string `json:"from_user_name,omitempty"`
}
