package repository

import "context"

// SessionRepository, oturum token cache'inin persist işlemleri için interface.
//
// Token lokal diske her zaman ŞİFRELİ yazılır — repository ciphertext'ten
// başka bir şey görmez, şifreleme çağıran tarafta (pkg/crypto) yapılır.
type SessionRepository interface {
	// Save, şifrelenmiş token'ı yazar (önceki cache'in üzerine).
	Save(ctx context.Context, ciphertext string) error

	// Load, şifrelenmiş token'ı döner; cache yoksa pkg.ErrNotFound.
	Load(ctx context.Context) (string, error)

	// Clear, cache'i siler (logout).
	Clear(ctx context.Context) error
}
