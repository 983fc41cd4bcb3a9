// Package services — VideoService: görüntülü arama için token ve oda üretimi.
//
// Medya sunucusuna (SFU) erişim JWT ile yapılır: API key + secret ile
// imzalanan token, kullanıcının hangi odaya hangi yetkilerle katılacağını
// taşır. Token üretimi tamamen lokaldir — SFU'ya istek atılmaz, oda ilk
// katılımda SFU tarafından kendiliğinden oluşur.
//
// Oda isimleri deterministiktir: iki kullanıcı id'sinin sıralı birleşimi +
// kısa bir uuid eki. Sıralama sayesinde her iki taraf aynı çifte aynı
// prefix'i üretir; uuid eki art arda aramaların aynı odaya düşmesini önler.
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"

	"github.com/doruhan/vira/config"
	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
)

// tokenValidity: video token'ın geçerlilik süresi.
// Görüşme bundan uzun sürerse SFU bağlantıyı kendisi yönetir.
const tokenValidity = time.Hour

// ─── VideoService Interface ───

// VideoService, video token ve oda ismi üretim operasyonları için interface.
type VideoService interface {
	// MintToken, verilen kimlik için odaya katılım token'ı üretir.
	MintToken(identity, room string) (*models.VideoTokenResponse, error)

	// RoomName, iki kullanıcı için deterministik prefix'li yeni bir
	// oda ismi üretir. Oda SFU'da önceden OLUŞTURULMAZ.
	RoomName(userID1, userID2 string) string
}

// videoService, VideoService'in private implementasyonu.
type videoService struct {
	cfg config.VideoConfig
}

// NewVideoService, yeni bir VideoService instance'ı oluşturur.
func NewVideoService(cfg config.VideoConfig) VideoService {
	return &videoService{cfg: cfg}
}

func (s *videoService) MintToken(identity, room string) (*models.VideoTokenResponse, error) {
	if s.cfg.APIKey == "" || s.cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: video sağlayıcı yapılandırılmamış", pkg.ErrMediaAccess)
	}

	// 1:1 aramada iki taraf da yayın yapar ve dinler.
	canPublish := true
	canSubscribe := true

	at := auth.NewAccessToken(s.cfg.APIKey, s.cfg.APISecret)
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         room,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}
	at.AddGrant(grant).
		SetIdentity(identity).
		SetValidFor(tokenValidity)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("%w: token üretilemedi: %v", pkg.ErrMediaAccess, err)
	}

	return &models.VideoTokenResponse{
		Token: token,
		URL:   s.cfg.URL,
		Room:  room,
	}, nil
}

func (s *videoService) RoomName(userID1, userID2 string) string {
	// Sıralı çift: RoomName(a,b) ve RoomName(b,a) aynı prefix'i üretir.
	if userID1 > userID2 {
		userID1, userID2 = userID2, userID1
	}
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("call-%s-%s-%s", userID1, userID2, suffix)
}
