package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/doruhan/vira/bus"
	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
)

// Test fake'leri: service'ler ISP interface'lerine bağımlı olduğu için
// provider client'ı yerine küçük in-memory implementasyonlar yeterlidir.

// fakeSession, sabit bir local user döner.
type fakeSession struct {
	user *models.User
}

func (f *fakeSession) LocalUser() *models.User { return f.user }

// eventRecorder, yayınlanan bus event'lerini sırayla biriktirir.
type eventRecorder struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *eventRecorder) Publish(event bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, len(r.events))
	for i, e := range r.events {
		ops[i] = e.Op
	}
	return ops
}

// last, verilen op'un en son yayınlanan event'ini döner.
func (r *eventRecorder) last(op string) (bus.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Op == op {
			return r.events[i], true
		}
	}
	return bus.Event{}, false
}

// fakeMessageStore, MessageStore'un in-memory implementasyonu.
type fakeMessageStore struct {
	mu       sync.Mutex
	messages []models.Message

	listErr   error
	insertErr error

	// onList, ListMessages dönmeden hemen önce çağrılır — stale-fetch
	// senaryolarında fetch sırasında peer değiştirmeyi simüle eder.
	onList func(conversationKey string)
}

func (f *fakeMessageStore) ListMessages(ctx context.Context, conversationKey string) ([]models.Message, error) {
	if f.onList != nil {
		hook := f.onList
		f.onList = nil // tek sefer — hook içindeki reentrant çağrı sonsuz döngüye girmesin
		hook(conversationKey)
	}
	if f.listErr != nil {
		return nil, f.listErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.messages {
		if m.ConversationKey == conversationKey {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) ListInbox(ctx context.Context, receiverID string) ([]models.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.messages {
		if m.ReceiverID == receiverID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	created := *msg
	created.CreatedAt = time.Now().UTC()
	f.messages = append(f.messages, created)
	return &created, nil
}

// fakeReadState, ReadStateRepository'nin in-memory implementasyonu.
type fakeReadState struct {
	mu  sync.Mutex
	set map[string]bool
}

func newFakeReadState() *fakeReadState {
	return &fakeReadState{set: make(map[string]bool)}
}

func (f *fakeReadState) MarkRead(ctx context.Context, peerID string, messageIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range messageIDs {
		f.set[id] = true
	}
	return nil
}

func (f *fakeReadState) ReadSet(ctx context.Context) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(f.set))
	for id := range f.set {
		out[id] = true
	}
	return out, nil
}

// fakeCallStore, CallStore'un kayıt tutan implementasyonu.
type fakeCallStore struct {
	mu       sync.Mutex
	inserted []models.CallNotification
	updates  []statusUpdate

	insertErr error
	updateErr error
}

type statusUpdate struct {
	ID     string
	Status models.CallStatus
}

func (f *fakeCallStore) InsertCallNotification(ctx context.Context, n *models.CallNotification) (*models.CallNotification, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	created := *n
	created.CreatedAt = time.Now().UTC()
	f.inserted = append(f.inserted, created)
	return &created, nil
}

func (f *fakeCallStore) UpdateCallStatus(ctx context.Context, notificationID string, status models.CallStatus) error {
	if f.updateErr != nil {
		return f.updateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusUpdate{ID: notificationID, Status: status})
	return nil
}

// fakeDirectory, ProfileGetter'ın sayaçlı implementasyonu — cache testleri
// lookup sayısını kontrol eder.
type fakeDirectory struct {
	mu      sync.Mutex
	users   map[string]*models.User
	lookups int
}

func (f *fakeDirectory) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	user, ok := f.users[userID]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	u := *user
	return &u, nil
}
