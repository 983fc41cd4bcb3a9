// Package repository, client-local SQLite store üzerindeki veri erişim
// katmanını barındırır. Her aggregate için bir interface + SQLite
// implementasyonu çifti tanımlanır — service katmanı sadece interface'i görür.
package repository

import "context"

// ReadStateRepository, okunmuş mesaj set'inin persist işlemleri için interface.
//
// Read set cihaz-local'dir: localStorage'ın Go karşılığı olarak SQLite
// kullanılır. Tek yazar vardır (sync engine'in MarkRead yolu), bu yüzden
// ayrıca bir locking katmanı gerekmez.
type ReadStateRepository interface {
	// MarkRead, verilen mesaj id'lerini peer'a ait okunmuş set'e ekler.
	// Zaten set'te olan id'ler sessizce atlanır (idempotent).
	MarkRead(ctx context.Context, peerID string, messageIDs []string) error

	// ReadSet, okunmuş tüm mesaj id'lerini set olarak döner.
	ReadSet(ctx context.Context) (map[string]bool, error)
}
