package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
)

// Client, platformun REST ve auth yüzeylerine erişim sağlar.
//
// Tüm istekler iki header taşır:
//   - apikey: projenin anonim anahtarı (her istekte sabit)
//   - Authorization: Bearer <access_token> (oturum açıldıktan sonra)
//
// Client goroutine-safe'tir; access token SetSession ile değiştirilebilir
// ama pratikte uygulama başında bir kez set edilir.
type Client struct {
	baseURL string
	anonKey string
	token   string
	http    *http.Client
}

// New, verilen platform adresi ve anonim anahtar ile bir Client oluşturur.
// baseURL sonundaki "/" temizlenir — path'ler her zaman "/" ile başlar.
func New(baseURL, anonKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetSession, sonraki isteklerde kullanılacak access token'ı ayarlar.
func (c *Client) SetSession(accessToken string) {
	c.token = accessToken
}

// ────────────────────────────────────────────
// Auth
// ────────────────────────────────────────────

// SignIn, kullanıcı adı + şifre ile oturum açar ve access token'ı saklar.
func (c *Client) SignIn(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", nil, body, &out); err != nil {
		return fmt.Errorf("%w: oturum açılamadı", pkg.ErrAuthRequired)
	}
	c.token = out.AccessToken
	return nil
}

// CurrentUser, mevcut access token'ın sahibini platformdan çözer.
// Token yoksa veya geçersizse pkg.ErrAuthRequired döner — uygulama bu
// durumda login ekranına düşer.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	if c.token == "" {
		return nil, fmt.Errorf("%w: aktif oturum yok", pkg.ErrAuthRequired)
	}
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AccessToken, aktif oturumun token'ını döner (realtime bağlantısı için).
func (c *Client) AccessToken() string {
	return c.token
}

// ────────────────────────────────────────────
// Messages
// ────────────────────────────────────────────

// ListMessages, bir konuşmanın tüm mesajlarını oluşturulma sırasına göre döner.
func (c *Client) ListMessages(ctx context.Context, conversationKey string) ([]models.Message, error) {
	q := url.Values{}
	q.Set("conversation_key", "eq."+conversationKey)
	q.Set("order", "created_at.asc")

	var msgs []models.Message
	if err := c.do(ctx, http.MethodGet, "/rest/v1/messages", q, nil, &msgs); err != nil {
		return nil, fmt.Errorf("%w: mesajlar alınamadı: %v", pkg.ErrFetchFailed, err)
	}
	return msgs, nil
}

// ListInbox, kullanıcıya gelen tüm mesajları döner.
// Okunmamış sayıları yeniden hesaplamak için kullanılır — okunma durumu
// lokalde tutulduğundan platformdan yalnızca inbound mesajlar çekilir.
func (c *Client) ListInbox(ctx context.Context, receiverID string) ([]models.Message, error) {
	q := url.Values{}
	q.Set("receiver_id", "eq."+receiverID)
	q.Set("order", "created_at.asc")

	var msgs []models.Message
	if err := c.do(ctx, http.MethodGet, "/rest/v1/messages", q, nil, &msgs); err != nil {
		return nil, fmt.Errorf("%w: gelen kutusu alınamadı: %v", pkg.ErrFetchFailed, err)
	}
	return msgs, nil
}

// InsertMessage, yeni bir mesajı platforma yazar ve sunucunun atadığı
// id + created_at ile zenginleşmiş halini döner.
func (c *Client) InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	var created models.Message
	if err := c.do(ctx, http.MethodPost, "/rest/v1/messages", nil, msg, &created); err != nil {
		return nil, fmt.Errorf("%w: mesaj yazılamadı: %v", pkg.ErrSendFailed, err)
	}
	return &created, nil
}

// ────────────────────────────────────────────
// Call notifications
// ────────────────────────────────────────────

// InsertCallNotification, yeni bir arama davetini platforma yazar.
func (c *Client) InsertCallNotification(ctx context.Context, n *models.CallNotification) (*models.CallNotification, error) {
	var created models.CallNotification
	if err := c.do(ctx, http.MethodPost, "/rest/v1/call_notifications", nil, n, &created); err != nil {
		return nil, fmt.Errorf("%w: arama daveti yazılamadı: %v", pkg.ErrSignalFailed, err)
	}
	return &created, nil
}

// UpdateCallStatus, bir arama davetinin durumunu günceller.
// Durum geçiş kuralları çağıran tarafta uygulanır — platform yalnızca yazar.
func (c *Client) UpdateCallStatus(ctx context.Context, notificationID string, status models.CallStatus) error {
	q := url.Values{}
	q.Set("id", "eq."+notificationID)

	body := map[string]string{"status": string(status)}
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/call_notifications", q, body, nil); err != nil {
		return fmt.Errorf("%w: arama durumu güncellenemedi: %v", pkg.ErrSignalFailed, err)
	}
	return nil
}

// ────────────────────────────────────────────
// Profiles
// ────────────────────────────────────────────

// GetProfile, tek bir kullanıcının profilini döner.
// Kayıt yoksa pkg.ErrNotFound döner.
func (c *Client) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	q := url.Values{}
	q.Set("id", "eq."+userID)

	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/rest/v1/profiles", q, nil, &users); err != nil {
		return nil, fmt.Errorf("%w: profil alınamadı: %v", pkg.ErrFetchFailed, err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: kullanıcı %s", pkg.ErrNotFound, userID)
	}
	return &users[0], nil
}

// ListProfiles, tüm kullanıcı profillerini döner (kişi listesi için).
func (c *Client) ListProfiles(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/rest/v1/profiles", nil, nil, &users); err != nil {
		return nil, fmt.Errorf("%w: kullanıcı listesi alınamadı: %v", pkg.ErrFetchFailed, err)
	}
	return users, nil
}

// ────────────────────────────────────────────
// HTTP yardımcıları
// ────────────────────────────────────────────

// do, tek bir REST isteğini çalıştırır: request'i kurar, header'ları ekler,
// status code'u sentinel error'a çevirir ve yanıtı out'a unmarshal eder.
// out nil ise yanıt gövdesi yok sayılır.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: istek gövdesi oluşturulamadı: %v", pkg.ErrInternal, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%w: istek oluşturulamadı: %v", pkg.ErrInternal, err)
	}
	req.Header.Set("apikey", c.anonKey)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		// return=representation: platform insert edilen satırı yanıt olarak döner.
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusToError(resp)
	}
	if out == nil {
		// Gövdeyi boşalt ki bağlantı connection pool'a dönebilsin.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: yanıt çözülemedi: %v", pkg.ErrFetchFailed, err)
	}
	return nil
}

// statusToError, HTTP status code'unu pkg sentinel error'larına eşler.
func statusToError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	detail := payload.Error
	if detail == "" {
		detail = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", pkg.ErrAuthRequired, detail)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", pkg.ErrForbidden, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", pkg.ErrNotFound, detail)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", pkg.ErrConflict, detail)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, detail)
	default:
		return fmt.Errorf("%w: %s", pkg.ErrFetchFailed, detail)
	}
}
