package repository

import (
	"context"

	"github.com/doruhan/vira/models"
)

// PeerRepository, seçili konuşma partnerinin persist işlemleri için interface.
//
// Seçim reload'lar arası hayatta kalır; restore sırasında peer'ın hâlâ var
// olup olmadığı DOĞRULANMAZ — stale bir referans "mesaj bulunamadı"
// durumuna zarifçe düşer (kabul edilmiş risk).
type PeerRepository interface {
	// Save, seçili peer'ı yazar (önceki seçimin üzerine).
	Save(ctx context.Context, peer *models.User) error

	// Load, persist edilmiş peer'ı döner; seçim yoksa pkg.ErrNotFound.
	Load(ctx context.Context) (*models.User, error)

	// Clear, persist edilmiş seçimi siler (logout).
	Clear(ctx context.Context) error
}
