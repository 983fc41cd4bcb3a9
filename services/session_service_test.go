package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doruhan/vira/bus"
	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
	"github.com/doruhan/vira/services"
)

type fakeIdentity struct {
	user *models.User
	err  error
}

func (f *fakeIdentity) CurrentUser(ctx context.Context) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeContacts struct {
	users []models.User
}

func (f *fakeContacts) ListProfiles(ctx context.Context) ([]models.User, error) {
	return append([]models.User(nil), f.users...), nil
}

func (f *fakeContacts) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == userID {
			u := u
			return &u, nil
		}
	}
	return nil, pkg.ErrNotFound
}

// fakePeerRepo, peer seçimini memory'de tutan repository.
type fakePeerRepo struct {
	peer    *models.User
	saveErr error
}

func (f *fakePeerRepo) Save(ctx context.Context, peer *models.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.peer = peer
	return nil
}

func (f *fakePeerRepo) Load(ctx context.Context) (*models.User, error) {
	if f.peer == nil {
		return nil, pkg.ErrNotFound
	}
	return f.peer, nil
}

func (f *fakePeerRepo) Clear(ctx context.Context) error {
	f.peer = nil
	return nil
}

func newSessionFixture() (*fakeIdentity, *fakePeerRepo, *eventRecorder, services.SessionService) {
	identity := &fakeIdentity{user: &models.User{ID: "u1", Username: "deniz"}}
	contacts := &fakeContacts{users: []models.User{
		{ID: "u1", Username: "deniz"},
		{ID: "u2", Username: "ayse"},
		{ID: "u3", Username: "can"},
	}}
	repo := &fakePeerRepo{}
	events := &eventRecorder{}
	svc := services.NewSessionService(identity, contacts, repo, events)
	return identity, repo, events, svc
}

func TestResolveLocalUser(t *testing.T) {
	ctx := context.Background()
	_, _, _, svc := newSessionFixture()

	require.Nil(t, svc.LocalUser())

	user, err := svc.ResolveLocalUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "u1", svc.LocalUser().ID)
}

func TestResolveLocalUserWithoutSession(t *testing.T) {
	identity, _, _, svc := newSessionFixture()
	identity.err = pkg.ErrAuthRequired

	_, err := svc.ResolveLocalUser(context.Background())
	assert.ErrorIs(t, err, pkg.ErrAuthRequired)
	assert.Nil(t, svc.LocalUser())
}

// TestContactsExcludesSelf: kişi listesi kendimizi içermez.
func TestContactsExcludesSelf(t *testing.T) {
	ctx := context.Background()
	_, _, _, svc := newSessionFixture()

	_, err := svc.ResolveLocalUser(ctx)
	require.NoError(t, err)

	contacts, err := svc.Contacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	for _, c := range contacts {
		assert.NotEqual(t, "u1", c.ID)
	}
}

func TestSelectPeer(t *testing.T) {
	ctx := context.Background()
	_, repo, events, svc := newSessionFixture()

	var callbackPeer *models.User
	svc.OnPeerSelected(func(peer *models.User) { callbackPeer = peer })

	peer, err := svc.SelectPeer(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "ayse", peer.Username)

	// Seçim persist edildi, callback ve event tetiklendi.
	require.NotNil(t, repo.peer)
	assert.Equal(t, "u2", repo.peer.ID)
	require.NotNil(t, callbackPeer)
	assert.Equal(t, "u2", callbackPeer.ID)
	assert.Equal(t, "u2", svc.SelectedPeer().ID)

	event, ok := events.last(bus.OpPeerSelected)
	require.True(t, ok)
	assert.Equal(t, "u2", event.Data.(*models.User).ID)
}

func TestSelectPeerUnknown(t *testing.T) {
	_, _, _, svc := newSessionFixture()

	_, err := svc.SelectPeer(context.Background(), "u9")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	assert.Nil(t, svc.SelectedPeer())
}

// TestSelectPeerSurvivesPersistFailure: lokal store yazılamasa bile seçim
// memory'de geçerli kalır — yalnızca restore kaybolur.
func TestSelectPeerSurvivesPersistFailure(t *testing.T) {
	_, repo, _, svc := newSessionFixture()
	repo.saveErr = assert.AnError

	peer, err := svc.SelectPeer(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", peer.ID)
	assert.Equal(t, "u2", svc.SelectedPeer().ID)
}

func TestRestoreSelectedPeer(t *testing.T) {
	ctx := context.Background()
	_, repo, _, svc := newSessionFixture()

	// Persist edilmiş seçim yok — hata akışı değil, boş başlangıç.
	_, err := svc.RestoreSelectedPeer(ctx)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	repo.peer = &models.User{ID: "u3", Username: "can"}
	peer, err := svc.RestoreSelectedPeer(ctx)
	require.NoError(t, err)
	assert.Equal(t, "can", peer.Username)
	assert.Equal(t, "u3", svc.SelectedPeer().ID)
}

func TestClearPeer(t *testing.T) {
	ctx := context.Background()
	_, repo, _, svc := newSessionFixture()

	_, err := svc.SelectPeer(ctx, "u2")
	require.NoError(t, err)

	require.NoError(t, svc.ClearPeer(ctx))
	assert.Nil(t, svc.SelectedPeer())
	assert.Nil(t, repo.peer)
}
