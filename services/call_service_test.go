package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doruhan/vira/bus"
	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
	"github.com/doruhan/vira/services"
)

func newCallFixture(localID string) (*fakeCallStore, *fakeDirectory, *eventRecorder, services.CallService) {
	store := &fakeCallStore{}
	directory := &fakeDirectory{users: map[string]*models.User{
		"u1": {ID: "u1", Username: "deniz"},
		"u2": {ID: "u2", Username: "ayse"},
	}}
	events := &eventRecorder{}
	session := &fakeSession{user: &models.User{ID: localID}}
	svc := services.NewCallService(store, directory, session, events)
	return store, directory, events, svc
}

// TestCallScenarioRoom42 walks the full happy path: u1 invites u2 into
// room-42, u2 accepts, both sides end up with a join event for room-42.
func TestCallScenarioRoom42(t *testing.T) {
	ctx := context.Background()

	callerStore, _, callerEvents, caller := newCallFixture("u1")
	_, _, calleeEvents, callee := newCallFixture("u2")

	// 1. Caller davet gönderir.
	n, err := caller.SendInvitation(ctx, "u2", "room-42", models.CallTypeVideo)
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusPending, n.Status)
	require.Len(t, callerStore.inserted, 1)
	require.NotNil(t, caller.Outgoing())

	// 2. Davet realtime ile callee'ye düşer.
	callee.HandleInsert(*n)
	incoming := callee.Incoming()
	require.NotNil(t, incoming)
	assert.Equal(t, "room-42", incoming.RoomName)
	assert.Equal(t, "deniz", incoming.FromUserName)

	event, ok := calleeEvents.last(bus.OpCallIncoming)
	require.True(t, ok)
	assert.Equal(t, "room-42", event.Data.(models.CallNotification).RoomName)

	// 3. Callee kabul eder — oda bilgisi join event'inde taşınır.
	require.NoError(t, callee.Accept(ctx, n.ID))
	event, ok = calleeEvents.last(bus.OpCallAccepted)
	require.True(t, ok)
	join := event.Data.(bus.CallJoinData)
	assert.Equal(t, "room-42", join.RoomName)
	assert.Equal(t, "u2", join.Identity)

	// 4. Update caller'a düşer — caller da aynı odaya katılır.
	accepted := *n
	accepted.Status = models.CallStatusAccepted
	caller.HandleUpdate(accepted)

	event, ok = callerEvents.last(bus.OpCallAccepted)
	require.True(t, ok)
	join = event.Data.(bus.CallJoinData)
	assert.Equal(t, "room-42", join.RoomName)
	assert.Equal(t, "u1", join.Identity)
	assert.Nil(t, caller.Outgoing())
}

// TestCallStatusMonotonic verifies invalid transitions are refused with
// ErrConflict and never reach the store.
func TestCallStatusMonotonic(t *testing.T) {
	ctx := context.Background()
	store, _, _, svc := newCallFixture("u2")

	n := models.CallNotification{
		ID: "c1", FromUserID: "u1", ToUserID: "u2",
		RoomName: "room-42", Status: models.CallStatusPending,
	}
	svc.HandleInsert(n)

	require.NoError(t, svc.Accept(ctx, "c1"))

	// Kabul edilmiş arama tekrar kabul/red edilemez.
	assert.ErrorIs(t, svc.Accept(ctx, "c1"), pkg.ErrConflict)
	assert.ErrorIs(t, svc.Reject(ctx, "c1"), pkg.ErrConflict)

	// accepted → ended geçerli tek geçiştir.
	require.NoError(t, svc.End(ctx, "c1"))

	// Slot boşaldı — arama artık bilinmiyor.
	assert.ErrorIs(t, svc.End(ctx, "c1"), pkg.ErrNotFound)

	// Store yalnızca geçerli geçişleri gördü.
	require.Len(t, store.updates, 2)
	assert.Equal(t, models.CallStatusAccepted, store.updates[0].Status)
	assert.Equal(t, models.CallStatusEnded, store.updates[1].Status)
}

func TestRejectFlow(t *testing.T) {
	ctx := context.Background()
	store, _, events, svc := newCallFixture("u2")

	svc.HandleInsert(models.CallNotification{
		ID: "c1", FromUserID: "u1", ToUserID: "u2",
		RoomName: "room-42", Status: models.CallStatusPending,
	})

	require.NoError(t, svc.Reject(ctx, "c1"))
	assert.Nil(t, svc.Incoming())

	_, ok := events.last(bus.OpCallRejected)
	assert.True(t, ok)
	require.Len(t, store.updates, 1)
	assert.Equal(t, models.CallStatusRejected, store.updates[0].Status)
}

// TestIncomingSlotLastWriteWins: a second invitation replaces the first —
// the single slot is a known limitation, not a queue.
func TestIncomingSlotLastWriteWins(t *testing.T) {
	_, _, _, svc := newCallFixture("u2")

	svc.HandleInsert(models.CallNotification{
		ID: "c1", FromUserID: "u1", ToUserID: "u2",
		RoomName: "room-a", Status: models.CallStatusPending,
	})
	svc.HandleInsert(models.CallNotification{
		ID: "c2", FromUserID: "u3", ToUserID: "u2",
		RoomName: "room-b", Status: models.CallStatusPending,
	})

	incoming := svc.Incoming()
	require.NotNil(t, incoming)
	assert.Equal(t, "c2", incoming.ID)
}

func TestHandleInsertIgnoresForeignAndNonPending(t *testing.T) {
	_, _, _, svc := newCallFixture("u2")

	// Başkasına adreslenmiş davet.
	svc.HandleInsert(models.CallNotification{
		ID: "c1", FromUserID: "u1", ToUserID: "u9",
		Status: models.CallStatusPending,
	})
	assert.Nil(t, svc.Incoming())

	// Pending olmayan satır (ör. tarihsel kayıt).
	svc.HandleInsert(models.CallNotification{
		ID: "c2", FromUserID: "u1", ToUserID: "u2",
		Status: models.CallStatusEnded,
	})
	assert.Nil(t, svc.Incoming())
}

func TestCallerSideRejectionClearsOutgoing(t *testing.T) {
	ctx := context.Background()
	_, _, events, svc := newCallFixture("u1")

	n, err := svc.SendInvitation(ctx, "u2", "room-42", models.CallTypeVideo)
	require.NoError(t, err)

	rejected := *n
	rejected.Status = models.CallStatusRejected
	svc.HandleUpdate(rejected)

	assert.Nil(t, svc.Outgoing())
	_, ok := events.last(bus.OpCallRejected)
	assert.True(t, ok)
}

func TestCalleeSideEndWhileRinging(t *testing.T) {
	_, _, events, svc := newCallFixture("u2")

	n := models.CallNotification{
		ID: "c1", FromUserID: "u1", ToUserID: "u2",
		RoomName: "room-42", Status: models.CallStatusPending,
	}
	svc.HandleInsert(n)

	ended := n
	ended.Status = models.CallStatusEnded
	svc.HandleUpdate(ended)

	assert.Nil(t, svc.Incoming())
	_, ok := events.last(bus.OpCallEnded)
	assert.True(t, ok)
}

func TestSendInvitationFailure(t *testing.T) {
	store, _, _, svc := newCallFixture("u1")
	store.insertErr = errors.New("gateway timeout")

	_, err := svc.SendInvitation(context.Background(), "u2", "room-42", models.CallTypeVideo)
	assert.ErrorIs(t, err, pkg.ErrSignalFailed)
	assert.Nil(t, svc.Outgoing())
}

// TestCallerNameIsCached: repeated invitations from the same caller hit the
// directory once.
func TestCallerNameIsCached(t *testing.T) {
	_, directory, _, svc := newCallFixture("u2")

	for _, id := range []string{"c1", "c2"} {
		svc.HandleInsert(models.CallNotification{
			ID: id, FromUserID: "u1", ToUserID: "u2",
			RoomName: "room-42", Status: models.CallStatusPending,
		})
	}

	assert.Equal(t, 1, directory.lookups)
}

func TestClearIncoming(t *testing.T) {
	store, _, _, svc := newCallFixture("u2")

	svc.HandleInsert(models.CallNotification{
		ID: "c1", FromUserID: "u1", ToUserID: "u2",
		RoomName: "room-42", Status: models.CallStatusPending,
	})
	svc.ClearIncoming()

	assert.Nil(t, svc.Incoming())
	// Zil lokal kapatıldı — platforma yazılmadı.
	assert.Empty(t, store.updates)
}
