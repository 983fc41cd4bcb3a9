// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Zincir: CORS → RateLimit → Auth → Handler
// Her middleware kendi işini yapar, sorun yoksa next'i çağırır;
// hata varsa zincir orada durur ve response yazılır.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/doruhan/vira/handlers"
	"github.com/doruhan/vira/pkg"
)

// AuthMiddleware, platform tarafından imzalanan oturum JWT'sini doğrular.
//
// Token platformda üretilir (HS256, paylaşılan secret); bu katman yalnızca
// imzayı ve süreyi kontrol eder, platforma gidip oturum sorgulamaz. sub
// claim'i kullanıcı id'sidir ve context'e konur — token endpoint'leri
// istekteki identity'yi bununla karşılaştırır.
type AuthMiddleware struct {
	jwtSecret []byte
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: []byte(jwtSecret)}
}

// Require, geçerli bir oturum token'ı zorunlu kılar.
// Token yoksa veya geçersizse → 401, next ÇAĞRILMAZ.
//
// HTTP header formatı: Authorization: Bearer <token>
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		userID, err := m.validate(tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), handlers.UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validate, token imzasını ve süresini kontrol eder, sub claim'ini döner.
func (m *AuthMiddleware) validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		// alg confusion koruması: sadece HMAC kabul edilir.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: geçersiz oturum token'ı", pkg.ErrAuthRequired)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: token sub claim'i eksik", pkg.ErrAuthRequired)
	}
	return sub, nil
}
