// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model nedir?
// Provider'daki bir tablonun Go karşılığıdır. Aynı zamanda API'den
// gelen/giden verilerin şeklini de belirler.
//
// `json:"username"` gibi tag'ler, struct field'larının JSON'a
// nasıl serialize/deserialize edileceğini belirler.
package models

import "time"

// UserStatus, kullanıcının çevrimiçi durumunu temsil eder.
// Status türetilmiş bir bilgidir (realtime bağlantı var/yok) —
// provider'da persist edilmez.
type UserStatus string

// İzin verilen UserStatus değerleri.
// Go'da enum yoktur, bunun yerine typed constant'lar kullanılır.
const (
	UserStatusOnline  UserStatus = "online"
	UserStatusOffline UserStatus = "offline"
)

// User, auth/storage provider'ın sahibi olduğu kimlik kaydıdır.
// Uygulama bu kaydı sadece okur — yazma yetkisi provider'dadır.
type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName *string    `json:"display_name"` // *string = nullable
	Status      UserStatus `json:"status,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Name, gösterilecek ismi döner: display_name varsa o, yoksa username.
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}
