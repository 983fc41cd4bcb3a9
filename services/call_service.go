// Package services — CallService: 1:1 arama sinyalizasyon koordinatörü.
//
// Sinyalizasyon akışı (platform satır değişiklikleri üzerinden):
// 1. Caller → SendInvitation → pending satır insert → karşı tarafa INSERT event
// 2. Callee → HandleInsert → gelen arama slot'u dolar → UI zil çalar
// 3. Callee → Accept/Reject → status update → caller'a UPDATE event
// 4. accepted → her iki taraf room_name ile video odasına katılır
//
// Durum makinesi forward-only'dir: pending → {accepted, rejected} → ended.
// Geçersiz geçiş (örn. ended bir aramayı accept etmek) platforma yazmadan
// pkg.ErrConflict ile reddedilir.
//
// Slot modeli: her yönde TEK arama tutulur. Üst üste gelen ikinci davet
// öncekinin yerine geçer (last write wins) — zil çalarken gelen yeni arama
// eskisini görünmez kılar. Kuyruk tutulmaz.
package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doruhan/vira/bus"
	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
	"github.com/doruhan/vira/pkg/cache"
)

// nameCacheTTL: caller adı çözümlemesinin cache süresi.
// Kullanıcı dizini nadiren değişir — her gelen aramada platforma gitmeye gerek yok.
const nameCacheTTL = 5 * time.Minute

// ─── ISP Interface'leri ───

// CallStore, arama bildirimi yazma/güncelleme için minimal interface.
// provider.Client bu interface'i duck typing ile otomatik karşılar.
type CallStore interface {
	InsertCallNotification(ctx context.Context, n *models.CallNotification) (*models.CallNotification, error)
	UpdateCallStatus(ctx context.Context, notificationID string, status models.CallStatus) error
}

// ProfileGetter, tek kullanıcı profili çözen minimal interface.
type ProfileGetter interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
}

// ─── CallService Interface ───

// CallService, arama sinyalizasyon operasyonları için iş mantığı interface'i.
type CallService interface {
	// SendInvitation, karşı tarafa pending bir arama daveti yazar ve
	// giden arama slot'unu doldurur. Platform hatası pkg.ErrSignalFailed.
	SendInvitation(ctx context.Context, toUserID, roomName string, callType models.CallType) (*models.CallNotification, error)

	// HandleInsert, realtime akışından gelen yeni daveti işler:
	// bize adreslenmiş pending davet gelen arama slot'una yazılır.
	HandleInsert(n models.CallNotification)

	// HandleUpdate, realtime akışından gelen durum değişikliğini işler
	// (caller tarafı: davetimize cevap geldi).
	HandleUpdate(n models.CallNotification)

	// Accept, gelen daveti kabul eder: status accepted yazılır,
	// call_accepted event'i oda bilgisiyle yayınlanır.
	Accept(ctx context.Context, notificationID string) error

	// Reject, gelen daveti reddeder ve slot'u boşaltır.
	Reject(ctx context.Context, notificationID string) error

	// End, aktif aramayı sonlandırır. Her iki taraf da çağırabilir.
	End(ctx context.Context, notificationID string) error

	// ClearIncoming, gelen arama slot'unu platforma dokunmadan boşaltır
	// (UI'ın zili kapatması).
	ClearIncoming()

	// Incoming ve Outgoing, slot'ların anlık kopyasını döner (nil = boş).
	Incoming() *models.CallNotification
	Outgoing() *models.CallNotification
}

// callService, CallService'in private implementasyonu.
type callService struct {
	store     CallStore
	directory ProfileGetter
	session   LocalUserSource
	events    bus.Publisher

	// nameCache: userID → görünen ad. Gelen her aramada dizin sorgusu
	// yerine kısa süreli cache.
	nameCache *cache.TTLCache[string, string]

	mu       sync.RWMutex
	incoming *models.CallNotification // bize gelen davet (tek slot)
	outgoing *models.CallNotification // bizim gönderdiğimiz davet (tek slot)
}

// NewCallService, yeni bir CallService instance'ı oluşturur.
func NewCallService(store CallStore, directory ProfileGetter, session LocalUserSource, events bus.Publisher) CallService {
	return &callService{
		store:     store,
		directory: directory,
		session:   session,
		events:    events,
		nameCache: cache.New[string, string](nameCacheTTL, time.Minute),
	}
}

func (s *callService) SendInvitation(ctx context.Context, toUserID, roomName string, callType models.CallType) (*models.CallNotification, error) {
	local := s.session.LocalUser()
	if local == nil {
		return nil, fmt.Errorf("%w: kimlik çözülmeden arama başlatılamaz", pkg.ErrAuthRequired)
	}

	n := &models.CallNotification{
		ID:         uuid.NewString(),
		FromUserID: local.ID,
		ToUserID:   toUserID,
		RoomName:   roomName,
		CallType:   callType,
		Status:     models.CallStatusPending,
	}

	created, err := s.store.InsertCallNotification(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrSignalFailed, err)
	}

	s.mu.Lock()
	s.outgoing = created
	s.mu.Unlock()

	log.Printf("[call] davet gönderildi: to=%s room=%s type=%s", toUserID, roomName, callType)
	return created, nil
}

func (s *callService) HandleInsert(n models.CallNotification) {
	local := s.session.LocalUser()
	if local == nil || n.ToUserID != local.ID || n.Status != models.CallStatusPending {
		return
	}

	// Caller'ın görünen adını davete iliştir — UI doğrudan gösterir.
	n.FromUserName = s.resolveName(n.FromUserID)

	s.mu.Lock()
	if s.incoming != nil && s.incoming.ID != n.ID {
		log.Printf("[call] gelen arama slot'u değişti: eski=%s yeni=%s", s.incoming.ID, n.ID)
	}
	s.incoming = &n
	s.mu.Unlock()

	s.events.Publish(bus.Event{Op: bus.OpCallIncoming, Data: n})
}

func (s *callService) HandleUpdate(n models.CallNotification) {
	local := s.session.LocalUser()
	if local == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Caller tarafı: gönderdiğimiz davete cevap geldi.
	if s.outgoing != nil && s.outgoing.ID == n.ID {
		switch n.Status {
		case models.CallStatusAccepted:
			s.outgoing = nil
			s.events.Publish(bus.Event{Op: bus.OpCallAccepted, Data: bus.CallJoinData{
				NotificationID: n.ID,
				RoomName:       n.RoomName,
				Identity:       local.ID,
			}})
			log.Printf("[call] davet kabul edildi: room=%s", n.RoomName)
		case models.CallStatusRejected:
			s.outgoing = nil
			s.events.Publish(bus.Event{Op: bus.OpCallRejected, Data: n})
			log.Printf("[call] davet reddedildi: id=%s", n.ID)
		case models.CallStatusEnded:
			s.outgoing = nil
			s.events.Publish(bus.Event{Op: bus.OpCallEnded, Data: n})
		}
		return
	}

	// Callee tarafı: zil çalarken karşı taraf aramayı sonlandırdı.
	if s.incoming != nil && s.incoming.ID == n.ID && n.Status == models.CallStatusEnded {
		s.incoming = nil
		s.events.Publish(bus.Event{Op: bus.OpCallEnded, Data: n})
	}
}

func (s *callService) Accept(ctx context.Context, notificationID string) error {
	local := s.session.LocalUser()
	if local == nil {
		return fmt.Errorf("%w: kimlik çözülmeden arama kabul edilemez", pkg.ErrAuthRequired)
	}

	s.mu.Lock()
	n := s.incoming
	if n == nil || n.ID != notificationID {
		s.mu.Unlock()
		return fmt.Errorf("%w: gelen arama %s", pkg.ErrNotFound, notificationID)
	}
	if !n.Status.CanTransition(models.CallStatusAccepted) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s durumundaki arama kabul edilemez", pkg.ErrConflict, n.Status)
	}
	s.mu.Unlock()

	if err := s.store.UpdateCallStatus(ctx, notificationID, models.CallStatusAccepted); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrSignalFailed, err)
	}

	s.mu.Lock()
	if s.incoming != nil && s.incoming.ID == notificationID {
		s.incoming.Status = models.CallStatusAccepted
	}
	roomName := n.RoomName
	s.mu.Unlock()

	s.events.Publish(bus.Event{Op: bus.OpCallAccepted, Data: bus.CallJoinData{
		NotificationID: notificationID,
		RoomName:       roomName,
		Identity:       local.ID,
	}})
	log.Printf("[call] arama kabul edildi: room=%s", roomName)
	return nil
}

func (s *callService) Reject(ctx context.Context, notificationID string) error {
	s.mu.Lock()
	n := s.incoming
	if n == nil || n.ID != notificationID {
		s.mu.Unlock()
		return fmt.Errorf("%w: gelen arama %s", pkg.ErrNotFound, notificationID)
	}
	if !n.Status.CanTransition(models.CallStatusRejected) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s durumundaki arama reddedilemez", pkg.ErrConflict, n.Status)
	}
	s.mu.Unlock()

	if err := s.store.UpdateCallStatus(ctx, notificationID, models.CallStatusRejected); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrSignalFailed, err)
	}

	s.mu.Lock()
	if s.incoming != nil && s.incoming.ID == notificationID {
		s.incoming = nil
	}
	s.mu.Unlock()

	s.events.Publish(bus.Event{Op: bus.OpCallRejected, Data: *n})
	log.Printf("[call] arama reddedildi: id=%s", notificationID)
	return nil
}

func (s *callService) End(ctx context.Context, notificationID string) error {
	s.mu.Lock()
	var n *models.CallNotification
	switch {
	case s.incoming != nil && s.incoming.ID == notificationID:
		n = s.incoming
	case s.outgoing != nil && s.outgoing.ID == notificationID:
		n = s.outgoing
	}
	if n == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: aktif arama %s", pkg.ErrNotFound, notificationID)
	}
	if !n.Status.CanTransition(models.CallStatusEnded) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s durumundaki arama sonlandırılamaz", pkg.ErrConflict, n.Status)
	}
	ended := *n
	s.mu.Unlock()

	if err := s.store.UpdateCallStatus(ctx, notificationID, models.CallStatusEnded); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrSignalFailed, err)
	}

	s.mu.Lock()
	if s.incoming != nil && s.incoming.ID == notificationID {
		s.incoming = nil
	}
	if s.outgoing != nil && s.outgoing.ID == notificationID {
		s.outgoing = nil
	}
	s.mu.Unlock()

	ended.Status = models.CallStatusEnded
	s.events.Publish(bus.Event{Op: bus.OpCallEnded, Data: ended})
	log.Printf("[call] arama sonlandırıldı: id=%s", notificationID)
	return nil
}

func (s *callService) ClearIncoming() {
	s.mu.Lock()
	s.incoming = nil
	s.mu.Unlock()
}

func (s *callService) Incoming() *models.CallNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.incoming == nil {
		return nil
	}
	n := *s.incoming
	return &n
}

func (s *callService) Outgoing() *models.CallNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.outgoing == nil {
		return nil
	}
	n := *s.outgoing
	return &n
}

// resolveName, kullanıcının görünen adını cache üzerinden çözer.
// Dizin hatası aramayı engellemez — ad boş kalır, UI id gösterir.
func (s *callService) resolveName(userID string) string {
	if name, ok := s.nameCache.Get(userID); ok {
		return name
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := s.directory.GetProfile(ctx, userID)
	if err != nil {
		log.Printf("[call] caller adı çözülemedi: id=%s err=%v", userID, err)
		return ""
	}

	name := user.Name()
	s.nameCache.Set(userID, name)
	return name
}
