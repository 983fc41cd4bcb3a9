// Package devserver, platformun gömülü geliştirme implementasyonudur.
//
// Uygulama normalde uzak bir platforma (auth + REST + realtime) bağlanır.
// Geliştirme ve test sırasında dışa bağımlılık istemeyiz: bu paket aynı
// HTTP/WS sözleşmesini lokal SQLite üzerinde uygular ve `--dev` modunda
// ayrı bir port'ta ayağa kalkar. provider.Client iki dünya arasındaki
// farkı GÖRMEZ.
//
// Yüzeyler:
//   - /auth/v1/signup, /auth/v1/token, /auth/v1/user — bcrypt + HS256 JWT
//   - /rest/v1/{messages,call_notifications,profiles} — `col=eq.val` filtreleri
//   - /realtime/v1/websocket — satır değişikliklerini abonelere yayan hub
//
// REST yazma yolları hub'ı besler: insert/update sonrası değişen satır
// eşleşen aboneliklere push edilir. Gerçek platformun davranışı da budur.
package devserver

import (
	"database/sql"
	"net/http"

	"github.com/rs/cors"

	"github.com/doruhan/vira/database"
)

// Server, gömülü geliştirme platformu.
type Server struct {
	db        *sql.DB
	jwtSecret []byte
	hub       *Hub
}

// New, verilen SQLite dosyası üzerinde gömülü platformu kurar.
// dbPath ":memory:" olabilir — test suite bu modu kullanır.
func New(dbPath, jwtSecret string) (*Server, error) {
	db, err := database.New(dbPath, Migrations)
	if err != nil {
		return nil, err
	}

	hub := NewHub()
	go hub.Run()

	return &Server{
		db:        db.Conn,
		jwtSecret: []byte(jwtSecret),
		hub:       hub,
	}, nil
}

// Router, platformun tüm HTTP yüzeyini tek handler olarak döner.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/v1/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/v1/token", s.handleToken)
	mux.HandleFunc("GET /auth/v1/user", s.handleCurrentUser)

	mux.HandleFunc("GET /rest/v1/messages", s.requireAuth(s.handleListMessages))
	mux.HandleFunc("POST /rest/v1/messages", s.requireAuth(s.handleInsertMessage))
	mux.HandleFunc("GET /rest/v1/call_notifications", s.requireAuth(s.handleListCalls))
	mux.HandleFunc("POST /rest/v1/call_notifications", s.requireAuth(s.handleInsertCall))
	mux.HandleFunc("PATCH /rest/v1/call_notifications", s.requireAuth(s.handleUpdateCall))
	mux.HandleFunc("GET /rest/v1/profiles", s.requireAuth(s.handleListProfiles))

	mux.HandleFunc("GET /realtime/v1/websocket", s.handleRealtime)

	// Geliştirme sunucusu her origin'e açıktır.
	return cors.AllowAll().Handler(mux)
}

// Close, hub'ı ve veritabanı bağlantısını kapatır.
func (s *Server) Close() error {
	s.hub.Shutdown()
	return s.db.Close()
}
