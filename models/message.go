package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Message, iki kullanıcı arasındaki tek bir chat mesajını temsil eder.
// Provider'daki "messages" tablosunun Go karşılığı.
//
// Mesaj gönderildiği anda oluşur, sonrasında immutable'dır —
// uygulama hiçbir mesajı düzenlemez veya silmez.
type Message struct {
	ID              string    `json:"id"`
	ConversationKey string    `json:"conversation_key"`
	SenderID        string    `json:"sender_id"`
	ReceiverID      string    `json:"receiver_id"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"created_at"`
}

// ConversationKey, sırasız bir kullanıcı çifti için deterministik
// konuşma anahtarı üretir.
//
// İki taraf da kendi client'ında aynı anahtarı hesaplar:
// ID'ler sıralanıp ":" ile birleştirilir. Bu sayede ayrı bir
// conversation tablosuna lookup yapmadan iki client aynı mantıksal
// konuşmada buluşur.
//
// Invariant: ConversationKey(a, b) == ConversationKey(b, a).
func ConversationKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

// CreateMessageRequest, yeni mesaj gönderme isteği.
type CreateMessageRequest struct {
	Content string `json:"content"`
}

// Validate, CreateMessageRequest'in geçerli olup olmadığını kontrol eder.
// İçerik 1-2000 karakter arası olmalı.
func (r *CreateMessageRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	contentLen := utf8.RuneCountInString(r.Content)
	if contentLen < 1 {
		return fmt.Errorf("message content is required")
	}
	if contentLen > 2000 {
		return fmt.Errorf("message content must be at most 2000 characters")
	}
	return nil
}

// UnreadInfo, bir göndericiden gelen okunmamış mesaj sayısını taşır.
// Frontend'de konuşma listesi badge'i için kullanılır.
type UnreadInfo struct {
	SenderID    string `json:"sender_id"`
	UnreadCount int    `json:"unread_count"`
}
