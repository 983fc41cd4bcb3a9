package devserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doruhan/vira/devserver"
	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
	"github.com/doruhan/vira/provider"
)

// newPlatform, in-memory SQLite üzerinde gömülü platformu ayağa kaldırır.
// provider.Client'ın konuştuğu sözleşmenin iki ucu da burada test edilir.
func newPlatform(t *testing.T) string {
	t.Helper()
	srv, err := devserver.New(":memory:", "devserver-test-secret")
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts.URL
}

func signup(t *testing.T, baseURL, username, password string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	resp, err := http.Post(baseURL+"/auth/v1/signup", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// newUser, kayıt + login yapar ve oturumlu bir client ile profili döner.
func newUser(t *testing.T, baseURL, username string) (*provider.Client, *models.User) {
	t.Helper()
	signup(t, baseURL, username, "password-123")

	client := provider.New(baseURL, "dev-anon-key")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, client.SignIn(ctx, username, "password-123"))
	user, err := client.CurrentUser(ctx)
	require.NoError(t, err)
	return client, user
}

func TestAuthFlow(t *testing.T) {
	baseURL := newPlatform(t)
	ctx := context.Background()

	signup(t, baseURL, "deniz", "password-123")

	// Yanlış şifre ve bilinmeyen kullanıcı aynı hatayı alır.
	client := provider.New(baseURL, "dev-anon-key")
	assert.ErrorIs(t, client.SignIn(ctx, "deniz", "wrong-password"), pkg.ErrAuthRequired)
	assert.ErrorIs(t, client.SignIn(ctx, "nobody", "password-123"), pkg.ErrAuthRequired)

	// Oturum yokken kimlik çözülemez.
	_, err := client.CurrentUser(ctx)
	assert.ErrorIs(t, err, pkg.ErrAuthRequired)

	require.NoError(t, client.SignIn(ctx, "deniz", "password-123"))
	user, err := client.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "deniz", user.Username)
	assert.NotEmpty(t, user.ID)
}

func TestMessageRoundTrip(t *testing.T) {
	baseURL := newPlatform(t)
	ctx := context.Background()

	deniz, denizUser := newUser(t, baseURL, "deniz")
	ayse, ayseUser := newUser(t, baseURL, "ayse")

	key := models.ConversationKey(denizUser.ID, ayseUser.ID)
	created, err := deniz.InsertMessage(ctx, &models.Message{
		ID:              uuid.NewString(),
		ConversationKey: key,
		SenderID:        denizUser.ID,
		ReceiverID:      ayseUser.ID,
		Content:         "selam",
	})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	// Karşı taraf aynı anahtarla konuşmayı görür.
	msgs, err := ayse.ListMessages(ctx, key)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "selam", msgs[0].Content)
	assert.Equal(t, denizUser.ID, msgs[0].SenderID)

	// Inbox filtresi yalnızca alıcıya gelenleri döner.
	inbox, err := ayse.ListInbox(ctx, ayseUser.ID)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)

	empty, err := ayse.ListInbox(ctx, denizUser.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestInsertMessageSenderEnforced: başkası adına mesaj yazılamaz —
// sender_id oturumla eşleşmek zorundadır.
func TestInsertMessageSenderEnforced(t *testing.T) {
	baseURL := newPlatform(t)
	ctx := context.Background()

	deniz, denizUser := newUser(t, baseURL, "deniz")
	_, ayseUser := newUser(t, baseURL, "ayse")

	_, err := deniz.InsertMessage(ctx, &models.Message{
		ConversationKey: models.ConversationKey(denizUser.ID, ayseUser.ID),
		SenderID:        ayseUser.ID, // sahte gönderici
		ReceiverID:      denizUser.ID,
		Content:         "spoofed",
	})
	assert.ErrorIs(t, err, pkg.ErrSendFailed)
}

func TestUnknownFilterColumnRejected(t *testing.T) {
	baseURL := newPlatform(t)
	deniz, _ := newUser(t, baseURL, "deniz")

	req, err := http.NewRequest(http.MethodGet, baseURL+"/rest/v1/messages?password_hash=eq.x", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+deniz.AccessToken())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestRealtimeMessageDelivery: insert edilen satır, receiver_id filtresine
// abone olan client'a WebSocket üzerinden düşer.
func TestRealtimeMessageDelivery(t *testing.T) {
	baseURL := newPlatform(t)
	ctx := context.Background()

	deniz, denizUser := newUser(t, baseURL, "deniz")
	ayse, ayseUser := newUser(t, baseURL, "ayse")

	received := make(chan models.Message, 1)
	sub, err := ayse.Subscribe(ctx, provider.SubscribePayload{
		Topic:        "messages:" + ayseUser.ID,
		Table:        "messages",
		InsertFilter: "receiver_id=eq." + ayseUser.ID,
	}, func(record json.RawMessage) {
		var m models.Message
		if json.Unmarshal(record, &m) == nil {
			received <- m
		}
	}, nil)
	require.NoError(t, err)
	defer sub.Close()

	_, err = deniz.InsertMessage(ctx, &models.Message{
		ConversationKey: models.ConversationKey(denizUser.ID, ayseUser.ID),
		SenderID:        denizUser.ID,
		ReceiverID:      ayseUser.ID,
		Content:         "realtime selam",
	})
	require.NoError(t, err)

	select {
	case m := <-received:
		assert.Equal(t, "realtime selam", m.Content)
		assert.Equal(t, denizUser.ID, m.SenderID)
	case <-time.After(3 * time.Second):
		t.Fatal("insert event'i abonelige ulasmadi")
	}
}

// TestRealtimeFilterExcludesOthers: filtreye uymayan satır abonelige düşmez.
func TestRealtimeFilterExcludesOthers(t *testing.T) {
	baseURL := newPlatform(t)
	ctx := context.Background()

	deniz, denizUser := newUser(t, baseURL, "deniz")
	ayse, ayseUser := newUser(t, baseURL, "ayse")
	_, canUser := newUser(t, baseURL, "can")

	received := make(chan json.RawMessage, 1)
	sub, err := ayse.Subscribe(ctx, provider.SubscribePayload{
		Topic:        "messages:" + ayseUser.ID,
		Table:        "messages",
		InsertFilter: "receiver_id=eq." + ayseUser.ID,
	}, func(record json.RawMessage) {
		received <- record
	}, nil)
	require.NoError(t, err)
	defer sub.Close()

	// Üçüncü kişiye giden mesaj — ayse'nin filtresine uymaz.
	_, err = deniz.InsertMessage(ctx, &models.Message{
		ConversationKey: models.ConversationKey(denizUser.ID, canUser.ID),
		SenderID:        denizUser.ID,
		ReceiverID:      canUser.ID,
		Content:         "baskasina",
	})
	require.NoError(t, err)

	select {
	case <-received:
		t.Fatal("filtreye uymayan event teslim edildi")
	case <-time.After(500 * time.Millisecond):
		// beklenen: sessizlik
	}
}

// TestCallSignalingRoundTrip: davet insert'i callee'ye, status update'i
// caller'a realtime olarak düşer — sinyalizasyonun tam turu.
func TestCallSignalingRoundTrip(t *testing.T) {
	baseURL := newPlatform(t)
	ctx := context.Background()

	deniz, denizUser := newUser(t, baseURL, "deniz")
	ayse, ayseUser := newUser(t, baseURL, "ayse")

	inserts := make(chan models.CallNotification, 1)
	calleeSub, err := ayse.Subscribe(ctx, provider.SubscribePayload{
		Topic:        "calls:" + ayseUser.ID,
		Table:        "call_notifications",
		InsertFilter: "to_user_id=eq." + ayseUser.ID,
	}, func(record json.RawMessage) {
		var n models.CallNotification
		if json.Unmarshal(record, &n) == nil {
			inserts <- n
		}
	}, nil)
	require.NoError(t, err)
	defer calleeSub.Close()

	updates := make(chan models.CallNotification, 1)
	callerSub, err := deniz.Subscribe(ctx, provider.SubscribePayload{
		Topic:        "calls:" + denizUser.ID,
		Table:        "call_notifications",
		UpdateFilter: "from_user_id=eq." + denizUser.ID,
	}, nil, func(record json.RawMessage) {
		var n models.CallNotification
		if json.Unmarshal(record, &n) == nil {
			updates <- n
		}
	})
	require.NoError(t, err)
	defer callerSub.Close()

	// Caller davet yazar — status ne gönderilirse gönderilsin pending açılır.
	created, err := deniz.InsertCallNotification(ctx, &models.CallNotification{
		FromUserID: denizUser.ID,
		ToUserID:   ayseUser.ID,
		RoomName:   "room-42",
		CallType:   models.CallTypeVideo,
		Status:     models.CallStatusAccepted,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusPending, created.Status)

	select {
	case n := <-inserts:
		assert.Equal(t, created.ID, n.ID)
		assert.Equal(t, "room-42", n.RoomName)
		assert.Equal(t, models.CallStatusPending, n.Status)
	case <-time.After(3 * time.Second):
		t.Fatal("davet callee'ye ulasmadi")
	}

	// Callee kabul eder — update caller'a düşer.
	require.NoError(t, ayse.UpdateCallStatus(ctx, created.ID, models.CallStatusAccepted))

	select {
	case n := <-updates:
		assert.Equal(t, created.ID, n.ID)
		assert.Equal(t, models.CallStatusAccepted, n.Status)
	case <-time.After(3 * time.Second):
		t.Fatal("status update caller'a ulasmadi")
	}
}

// TestCallUpdateRequiresParticipant: aramanın tarafı olmayan kullanıcı
// status güncelleyemez.
func TestCallUpdateRequiresParticipant(t *testing.T) {
	baseURL := newPlatform(t)
	ctx := context.Background()

	deniz, denizUser := newUser(t, baseURL, "deniz")
	_, ayseUser := newUser(t, baseURL, "ayse")
	can, _ := newUser(t, baseURL, "can")

	created, err := deniz.InsertCallNotification(ctx, &models.CallNotification{
		FromUserID: denizUser.ID,
		ToUserID:   ayseUser.ID,
		RoomName:   "room-42",
		CallType:   models.CallTypeVideo,
	})
	require.NoError(t, err)

	err = can.UpdateCallStatus(ctx, created.ID, models.CallStatusEnded)
	assert.ErrorIs(t, err, pkg.ErrSignalFailed)
}

func TestProfilesDirectory(t *testing.T) {
	baseURL := newPlatform(t)
	ctx := context.Background()

	deniz, _ := newUser(t, baseURL, "deniz")
	_, ayseUser := newUser(t, baseURL, "ayse")

	// Tek profil lookup'ı.
	user, err := deniz.GetProfile(ctx, ayseUser.ID)
	require.NoError(t, err)
	assert.Equal(t, "ayse", user.Username)

	_, err = deniz.GetProfile(ctx, "no-such-id")
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	// Tam liste kendimizi de içerir; username sırası deterministiktir.
	users, err := deniz.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ayse", users[0].Username)
	assert.Equal(t, "deniz", users[1].Username)
}
