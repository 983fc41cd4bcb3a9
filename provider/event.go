// Package provider, uzak platform (auth + veri + realtime) ile konuşan istemciyi içerir.
//
// Platform üç yüzey sunar:
//   - /auth/v1/*     → oturum doğrulama (Bearer token ile kimlik çözme)
//   - /rest/v1/*     → tablo bazlı CRUD (messages, call_notifications, profiles)
//   - /realtime/v1/* → WebSocket üzerinden satır değişikliği akışı (INSERT/UPDATE)
//
// Bu paket platformun İÇ yapısını bilmez — sadece HTTP/WS sözleşmesini uygular.
// Uygulamanın geri kalanı platformla yalnızca Client üzerinden konuşur.
package provider

import "encoding/json"

// WireEvent, realtime WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op (operation): Event türü — "insert", "heartbeat" vb.
// Data: Event'e özgü payload — değişen satır, abonelik bilgisi vb.
// Seq (sequence number): Sunucunun her outbound event'e verdiği artan sayı.
type WireEvent struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// ────────────────────────────────────────────
// Operation sabitleri
// ────────────────────────────────────────────

// Client → Server operasyonları
const (
	OpSubscribe = "subscribe" // Bağlantı kurulunca ilk mesaj — hangi tablo + filtreler
	OpHeartbeat = "heartbeat" // Client her 30sn'de gönderir — "hâlâ bağlıyım" sinyali
)

// Server → Client operasyonları
const (
	OpSubscribed   = "subscribed"    // Abonelik kabul edildi
	OpHeartbeatAck = "heartbeat_ack" // Heartbeat'e yanıt
	OpInsert       = "insert"        // Abone olunan tabloya yeni satır eklendi
	OpUpdate       = "update"        // Abone olunan tabloda bir satır güncellendi
)

// SubscribePayload, OpSubscribe mesajının data alanıdır.
//
// Filtreler "kolon=eq.değer" biçimindedir (REST query sözdizimi ile aynı).
// InsertFilter ve UpdateFilter bağımsızdır: bir abonelik INSERT'leri bir
// filtreyle, UPDATE'leri başka bir filtreyle dinleyebilir. Boş filtre o
// event türünün hiç iletilmemesi demektir.
type SubscribePayload struct {
	Topic        string `json:"topic"`
	Table        string `json:"table"`
	InsertFilter string `json:"insert_filter,omitempty"`
	UpdateFilter string `json:"update_filter,omitempty"`
}

// ChangePayload, OpInsert ve OpUpdate mesajlarının data alanıdır.
// Record, değişen satırın tam JSON gösterimidir — abone kendi model
// tipine unmarshal eder.
type ChangePayload struct {
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
}
