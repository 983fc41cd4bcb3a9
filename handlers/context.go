// Package handlers, HTTP endpoint'lerini yönetir.
//
// Handler'lar "ince"dir: request parse et, service çağır, response yaz.
// İş mantığı (token üretimi, oda ismi) service katmanında yaşar.
package handlers

// contextKey, context value çakışmalarını önleyen private tip.
// String key kullanmak başka paketlerin key'leriyle çakışabilir —
// kendi tipimiz bunu derleme zamanında imkansız kılar.
type contextKey string

// UserIDContextKey, auth middleware'ının doğruladığı kullanıcı id'sinin
// context'teki anahtarı.
const UserIDContextKey contextKey = "userID"
