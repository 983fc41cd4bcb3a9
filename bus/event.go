// Package bus, process içi event dağıtımını sağlar.
//
// Session store, sync engine ve call coordinator durum değişikliklerini
// doğrudan UI katmanına çağrı yaparak değil, bu bus üzerinden duyurur.
// UI (veya test) bir subscriber açar, event'leri kendi hızında tüketir.
//
// Mimari:
// - Bus: Subscriber set'ini yöneten merkezi yapı (Observer pattern)
// - Subscription: Tek bir dinleyiciyi temsil eder, buffered channel taşır
// - Event: op/d/seq zarfı — realtime feed ile aynı format
package bus

// Event, bus üzerinden iletilen bir mesajı temsil eder.
//
// Op (operation): Event türü — "message_create", "call_incoming" vb.
// Data: Event'e özgü payload.
// Seq: Her event'e verilen artan sayı — dinleyici eksik event tespit edebilir.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Operation sabitleri — bus üzerinden duyurulan event türleri.
const (
	// Session
	OpPeerSelected = "peer_selected" // Aktif konuşma partneri değişti

	// Conversation
	OpMessageCreate = "message_create" // Aktif konuşmaya yeni mesaj eklendi
	OpHistoryLoaded = "history_loaded" // Konuşma geçmişi (yeniden) yüklendi
	OpUnreadUpdate  = "unread_update"  // Bir peer'ın unread sayacı değişti
	OpSyncError     = "sync_error"     // Geçmiş yüklenemedi — non-fatal durum

	// Call signaling
	OpCallIncoming = "call_incoming" // Gelen arama daveti (pending)
	OpCallAccepted = "call_accepted" // Gönderilen davet kabul edildi — odaya katıl
	OpCallRejected = "call_rejected" // Gönderilen davet reddedildi
	OpCallEnded    = "call_ended"    // Arama sonlandı
)

// UnreadUpdateData, unread_update event'inin payload'ı.
type UnreadUpdateData struct {
	SenderID string `json:"sender_id"`
	Count    int    `json:"count"`
}

// CallJoinData, call_accepted event'inin payload'ı.
// Caller bu bilgiyle video provider'a bağlanır (token al + connect).
type CallJoinData struct {
	NotificationID string `json:"notification_id"`
	RoomName       string `json:"room_name"`
	Identity       string `json:"identity"`
}

// SyncErrorData, sync_error event'inin payload'ı.
// UI bu durumu inline "could not load messages" olarak gösterir.
type SyncErrorData struct {
	PeerID string `json:"peer_id"`
	Reason string `json:"reason"`
}
