// Package services — SessionService: oturum ve aktif peer yönetimi.
//
// Oturum yaşam döngüsü:
// 1. Uygulama açılışı → ResolveLocalUser → platformdan kimlik çözülür
// 2. RestoreSelectedPeer → son seçili peer lokal store'dan geri yüklenir
// 3. SelectPeer → aktif peer değişir, persist edilir, dinleyiciler tetiklenir
//
// Oturum state'i (kimlik + aktif peer) bu service'in İÇİNDE, mutex arkasında
// tutulur — ambient/global session yoktur. Diğer service'ler kimliğe yalnızca
// LocalUser() üzerinden erişir.
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/doruhan/vira/bus"
	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
	"github.com/doruhan/vira/repository"
)

// ─── ISP Interface'leri ───

// IdentityResolver, aktif oturumun sahibini çözen minimal interface.
// provider.Client bu interface'i duck typing ile otomatik karşılar.
type IdentityResolver interface {
	CurrentUser(ctx context.Context) (*models.User, error)
}

// ContactLister, kullanıcı dizinini listeleyen minimal interface.
type ContactLister interface {
	ListProfiles(ctx context.Context) ([]models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
}

// PeerSelectedFunc, aktif peer değiştiğinde çağrılan callback.
// main.go bu callback'e konuşma reload + mark-read akışını bağlar.
type PeerSelectedFunc func(peer *models.User)

// ─── SessionService Interface ───

// SessionService, oturum operasyonları için iş mantığı interface'i.
type SessionService interface {
	// ResolveLocalUser, platformdan aktif oturumun sahibini çözer ve saklar.
	// Oturum yoksa pkg.ErrAuthRequired döner — caller login akışına yönlendirir.
	ResolveLocalUser(ctx context.Context) (*models.User, error)

	// LocalUser, çözülmüş kimliği döner (nil = henüz çözülmedi).
	LocalUser() *models.User

	// Contacts, konuşulabilecek kullanıcıların listesini döner (kendisi hariç).
	Contacts(ctx context.Context) ([]models.User, error)

	// SelectPeer, aktif konuşma partnerini değiştirir: peer bilgisi çözülür,
	// persist edilir, kayıtlı callback tetiklenir.
	SelectPeer(ctx context.Context, peerID string) (*models.User, error)

	// RestoreSelectedPeer, son seçili peer'ı lokal store'dan geri yükler.
	// Persist edilmiş seçim yoksa pkg.ErrNotFound döner — bu bir hata akışı
	// değildir, caller boş ekranla başlar.
	RestoreSelectedPeer(ctx context.Context) (*models.User, error)

	// SelectedPeer, aktif peer'ı döner (nil = seçim yok).
	SelectedPeer() *models.User

	// ClearPeer, aktif seçimi hem memory'den hem store'dan siler.
	ClearPeer(ctx context.Context) error

	// OnPeerSelected, peer değişiminde çağrılacak callback'i kaydeder.
	// Wire-up sırasında bir kez çağrılır.
	OnPeerSelected(fn PeerSelectedFunc)
}

// sessionService, SessionService'in private implementasyonu.
type sessionService struct {
	identity IdentityResolver
	contacts ContactLister
	peerRepo repository.PeerRepository
	events   bus.Publisher

	mu        sync.RWMutex
	localUser *models.User
	peer      *models.User
	onSelect  PeerSelectedFunc
}

// NewSessionService, yeni bir SessionService instance'ı oluşturur.
func NewSessionService(identity IdentityResolver, contacts ContactLister, peerRepo repository.PeerRepository, events bus.Publisher) SessionService {
	return &sessionService{
		identity: identity,
		contacts: contacts,
		peerRepo: peerRepo,
		events:   events,
	}
}

func (s *sessionService) ResolveLocalUser(ctx context.Context) (*models.User, error) {
	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, pkg.ErrAuthRequired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: kimlik çözülemedi: %v", pkg.ErrAuthRequired, err)
	}

	s.mu.Lock()
	s.localUser = user
	s.mu.Unlock()

	log.Printf("[session] kimlik çözüldü: %s (%s)", user.Username, user.ID)
	return user, nil
}

func (s *sessionService) LocalUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localUser
}

func (s *sessionService) Contacts(ctx context.Context) ([]models.User, error) {
	users, err := s.contacts.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	local := s.localUser
	s.mu.RUnlock()

	// Kendini kişi listesinde gösterme.
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if local != nil && u.ID == local.ID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *sessionService) SelectPeer(ctx context.Context, peerID string) (*models.User, error) {
	peer, err := s.contacts.GetProfile(ctx, peerID)
	if err != nil {
		return nil, err
	}

	if err := s.peerRepo.Save(ctx, peer); err != nil {
		// Persist hatası seçimi engellemez — sadece restore kaybolur.
		log.Printf("[session] peer persist edilemedi: %v", err)
	}

	s.mu.Lock()
	s.peer = peer
	fn := s.onSelect
	s.mu.Unlock()

	s.events.Publish(bus.Event{Op: bus.OpPeerSelected, Data: peer})
	if fn != nil {
		fn(peer)
	}

	log.Printf("[session] peer seçildi: %s", peer.Username)
	return peer, nil
}

func (s *sessionService) RestoreSelectedPeer(ctx context.Context) (*models.User, error) {
	peer, err := s.peerRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.peer = peer
	fn := s.onSelect
	s.mu.Unlock()

	s.events.Publish(bus.Event{Op: bus.OpPeerSelected, Data: peer})
	if fn != nil {
		fn(peer)
	}

	log.Printf("[session] peer geri yüklendi: %s", peer.Username)
	return peer, nil
}

func (s *sessionService) SelectedPeer() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peer
}

func (s *sessionService) ClearPeer(ctx context.Context) error {
	s.mu.Lock()
	s.peer = nil
	s.mu.Unlock()

	return s.peerRepo.Clear(ctx)
}

func (s *sessionService) OnPeerSelected(fn PeerSelectedFunc) {
	s.mu.Lock()
	s.onSelect = fn
	s.mu.Unlock()
}
