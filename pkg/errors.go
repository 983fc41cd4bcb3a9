// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Go'da error'lar basit değerlerdir. errors.New() ile sabit error
// değişkenleri tanımlarız; karşılaştırma string yerine errors.Is ile yapılır:
//
//	if errors.Is(err, pkg.ErrAuthRequired) { ... }
package pkg

import "errors"

// Domain-level error'lar.
//
// - ErrAuthRequired: oturum yok — caller login akışına yönlendirir
// - ErrFetchFailed:  geçmiş/kullanıcı listesi yüklenemedi, non-fatal
// - ErrSendFailed:   mesaj yazılamadı — compose içeriği korunur, retry kullanıcıya ait
// - ErrSignalFailed: call notification yazma/güncelleme başarısız
// - ErrMediaAccess:  kamera/mikrofon erişimi yok — chat'i etkilemez
// - ErrConflict:     ileri-yönlü olmayan call status geçişi denendi
//
// Hiçbiri oturumu sonlandırmaz; handler katmanı bunları HTTP status'a map'ler.
var (
	ErrAuthRequired = errors.New("authentication required")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrFetchFailed  = errors.New("fetch failed")
	ErrSendFailed   = errors.New("send failed")
	ErrSignalFailed = errors.New("signal failed")
	ErrMediaAccess  = errors.New("media access denied")
	ErrInternal     = errors.New("internal error")
)
