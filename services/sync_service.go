// Package services — ConversationService: konuşma senkronizasyon motoru.
//
// Senkronizasyon modeli (push-only):
// - Peer seçilince geçmiş platformdan TEK SEFER çekilir (LoadHistory)
// - Sonrası realtime INSERT event'leri ile beslenir (HandleInsert)
// - Mesaj gönderimi write-then-refetch: insert sonrası geçmiş yeniden çekilir,
//   optimistic append yapılmaz — sunucu sırası tek doğruluk kaynağıdır
//
// İki akış yarışabilir: refetch dönerken aynı mesaj realtime'dan da gelebilir.
// Append idempotent olduğu için (id bazlı dedupe) iki yol aynı sonuca yakınsar.
//
// Aktif olmayan konuşmalara gelen mesajlar okunmamış sayaçlarını artırır;
// sayaçlar istendiğinde full recomputation ile yeniden hesaplanır (gelen tüm
// mesajlar − lokal read set). Artımlı muhasebe tutulmaz — kaçan bir event
// bir sonraki recompute'ta kendiliğinden düzelir.
package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/doruhan/vira/bus"
	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
	"github.com/doruhan/vira/repository"
)

// SyncState, aktif konuşmanın yüklenme durumunu temsil eder.
//
// Geçişler: Unloaded → Loading → {Loaded, Errored}
// Peer değişimi her zaman Loading'e geri döner. Errored durumunda oturum
// yaşamaya devam eder — kullanıcı peer'ı yeniden seçerek tekrar deneyebilir.
type SyncState string

const (
	SyncUnloaded SyncState = "unloaded"
	SyncLoading  SyncState = "loading"
	SyncLoaded   SyncState = "loaded"
	SyncErrored  SyncState = "errored"
)

// ─── ISP Interface'leri ───

// MessageStore, mesaj okuma/yazma için minimal interface.
// provider.Client bu interface'i duck typing ile otomatik karşılar.
type MessageStore interface {
	ListMessages(ctx context.Context, conversationKey string) ([]models.Message, error)
	ListInbox(ctx context.Context, receiverID string) ([]models.Message, error)
	InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
}

// LocalUserSource, çözülmüş kimliğe erişim için minimal interface.
// services.SessionService bu interface'i karşılar.
type LocalUserSource interface {
	LocalUser() *models.User
}

// ─── ConversationService Interface ───

// ConversationService, konuşma senkronizasyon operasyonları için interface.
type ConversationService interface {
	// LoadHistory, peer ile olan konuşmanın tam geçmişini platformdan çeker.
	// Boş konuşma hata değildir. Platform hatası pkg.ErrFetchFailed olarak
	// döner ve state Errored olur — oturum yaşamaya devam eder.
	LoadHistory(ctx context.Context, peerID string) ([]models.Message, error)

	// SendMessage, içeriği doğrular, mesajı platforma yazar ve geçmişi
	// yeniden çeker. Hata durumunda pkg.ErrSendFailed döner — yazılan
	// içerik kaybolmaz, caller'da kalır.
	SendMessage(ctx context.Context, peerID, content string) error

	// HandleInsert, realtime akışından gelen yeni mesajı işler:
	// aktif konuşmaya aitse idempotent append, değilse okunmamış sayacı.
	HandleInsert(msg models.Message)

	// UnreadCounts, okunmamış sayaçlarını sıfırdan hesaplar:
	// gelen tüm mesajlar − lokal read set, gönderene göre gruplu.
	UnreadCounts(ctx context.Context) (map[string]int, error)

	// MarkRead, peer'dan gelen bilinen tüm mesajları okundu işaretler,
	// sayacı sıfırlar ve unread_update yayınlar.
	MarkRead(ctx context.Context, peerID string) error

	// Messages, aktif konuşmanın anlık kopyasını döner.
	Messages() []models.Message

	// State, aktif konuşmanın yüklenme durumunu döner.
	State() SyncState
}

// conversationService, ConversationService'in private implementasyonu.
type conversationService struct {
	store     MessageStore
	session   LocalUserSource
	readState repository.ReadStateRepository
	events    bus.Publisher

	mu        sync.RWMutex
	activeKey string            // aktif konuşmanın sorted-pair key'i
	state     SyncState
	messages  []models.Message
	seen      map[string]bool   // aktif konuşmadaki mesaj id'leri (dedupe)
	unread    map[string]int    // senderID → okunmamış sayısı
	inboundID map[string][]string // senderID → okunmamış mesaj id'leri (MarkRead için)
}

// NewConversationService, yeni bir ConversationService instance'ı oluşturur.
func NewConversationService(store MessageStore, session LocalUserSource, readState repository.ReadStateRepository, events bus.Publisher) ConversationService {
	return &conversationService{
		store:     store,
		session:   session,
		readState: readState,
		events:    events,
		state:     SyncUnloaded,
		seen:      make(map[string]bool),
		unread:    make(map[string]int),
		inboundID: make(map[string][]string),
	}
}

func (s *conversationService) LoadHistory(ctx context.Context, peerID string) ([]models.Message, error) {
	local := s.session.LocalUser()
	if local == nil {
		return nil, fmt.Errorf("%w: kimlik çözülmeden geçmiş yüklenemez", pkg.ErrAuthRequired)
	}
	key := models.ConversationKey(local.ID, peerID)

	s.mu.Lock()
	s.activeKey = key
	s.state = SyncLoading
	s.messages = nil
	s.seen = make(map[string]bool)
	s.mu.Unlock()

	msgs, err := s.store.ListMessages(ctx, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stale-response koruması: fetch sürerken kullanıcı başka bir peer
	// seçtiyse bu sonuç artık eski konuşmaya aittir — sessizce atılır.
	if s.activeKey != key {
		log.Printf("[sync] stale fetch atıldı: key=%s aktif=%s", key, s.activeKey)
		return nil, nil
	}

	if err != nil {
		s.state = SyncErrored
		s.events.Publish(bus.Event{Op: bus.OpSyncError, Data: bus.SyncErrorData{
			PeerID: peerID,
			Reason: err.Error(),
		}})
		return nil, fmt.Errorf("%w: geçmiş yüklenemedi: %v", pkg.ErrFetchFailed, err)
	}

	s.messages = msgs
	s.seen = make(map[string]bool, len(msgs))
	for _, m := range msgs {
		s.seen[m.ID] = true
	}
	s.state = SyncLoaded

	s.events.Publish(bus.Event{Op: bus.OpHistoryLoaded, Data: msgs})
	log.Printf("[sync] geçmiş yüklendi: key=%s mesaj=%d", key, len(msgs))
	return msgs, nil
}

func (s *conversationService) SendMessage(ctx context.Context, peerID, content string) error {
	req := models.CreateMessageRequest{Content: content}
	if err := req.Validate(); err != nil {
		return err
	}

	local := s.session.LocalUser()
	if local == nil {
		return fmt.Errorf("%w: kimlik çözülmeden mesaj gönderilemez", pkg.ErrAuthRequired)
	}

	msg := &models.Message{
		ID:              uuid.NewString(),
		ConversationKey: models.ConversationKey(local.ID, peerID),
		SenderID:        local.ID,
		ReceiverID:      peerID,
		Content:         content,
	}

	if _, err := s.store.InsertMessage(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrSendFailed, err)
	}

	// Write-then-refetch: görünen liste her zaman sunucu sırasını yansıtır.
	// Refetch hatası gönderimi geri almaz — mesaj platformda, liste eski;
	// bir sonraki başarılı yükleme görüntüyü düzeltir.
	if _, err := s.LoadHistory(ctx, peerID); err != nil {
		log.Printf("[sync] gönderim sonrası refetch başarısız: %v", err)
	}
	return nil
}

func (s *conversationService) HandleInsert(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ConversationKey == s.activeKey && s.state != SyncUnloaded {
		// Aynı mesaj refetch ile zaten gelmiş olabilir — id bazlı dedupe.
		if s.seen[msg.ID] {
			return
		}
		s.seen[msg.ID] = true
		s.messages = append(s.messages, msg)
		s.events.Publish(bus.Event{Op: bus.OpMessageCreate, Data: msg})
		return
	}

	// Aktif olmayan konuşma: sayaç artar, rozet güncellenir.
	s.unread[msg.SenderID]++
	s.inboundID[msg.SenderID] = append(s.inboundID[msg.SenderID], msg.ID)
	s.events.Publish(bus.Event{Op: bus.OpUnreadUpdate, Data: bus.UnreadUpdateData{
		SenderID: msg.SenderID,
		Count:    s.unread[msg.SenderID],
	}})
}

func (s *conversationService) UnreadCounts(ctx context.Context) (map[string]int, error) {
	local := s.session.LocalUser()
	if local == nil {
		return nil, fmt.Errorf("%w: kimlik çözülmeden sayaç hesaplanamaz", pkg.ErrAuthRequired)
	}

	inbox, err := s.store.ListInbox(ctx, local.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: gelen kutusu alınamadı: %v", pkg.ErrFetchFailed, err)
	}

	readSet, err := s.readState.ReadSet(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	ids := make(map[string][]string)
	for _, m := range inbox {
		if readSet[m.ID] {
			continue
		}
		counts[m.SenderID]++
		ids[m.SenderID] = append(ids[m.SenderID], m.ID)
	}

	s.mu.Lock()
	s.unread = counts
	s.inboundID = ids
	s.mu.Unlock()

	for senderID, count := range counts {
		s.events.Publish(bus.Event{Op: bus.OpUnreadUpdate, Data: bus.UnreadUpdateData{
			SenderID: senderID,
			Count:    count,
		}})
	}
	return counts, nil
}

func (s *conversationService) MarkRead(ctx context.Context, peerID string) error {
	s.mu.Lock()
	ids := append([]string(nil), s.inboundID[peerID]...)
	// Aktif konuşmada peer'ın gönderdiği her mesaj da "bilinen" sayılır.
	for _, m := range s.messages {
		if m.SenderID == peerID {
			ids = append(ids, m.ID)
		}
	}
	s.mu.Unlock()

	if len(ids) > 0 {
		if err := s.readState.MarkRead(ctx, peerID, ids); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.unread[peerID] = 0
	s.inboundID[peerID] = nil
	s.mu.Unlock()

	s.events.Publish(bus.Event{Op: bus.OpUnreadUpdate, Data: bus.UnreadUpdateData{
		SenderID: peerID,
		Count:    0,
	}})
	return nil
}

func (s *conversationService) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *conversationService) State() SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
