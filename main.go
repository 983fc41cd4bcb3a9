// Package main, vira client core'unun giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. (opsiyonel) Gömülü geliştirme platformunu başlat
//  3. Lokal SQLite store'u aç
//  4. Repository'leri oluştur
//  5. Event bus'ı oluştur
//  6. Provider client'ı kur, oturumu çöz
//  7. Service'leri oluştur ve callback'leri bağla
//  8. Realtime aboneliklerini aç (mesaj akışı + arama akışı)
//  9. HTTP server'ı kur (token / create-room / health)
// 10. Graceful shutdown
//
// Global değişken YOK — her şey burada oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/doruhan/vira/bus"
	"github.com/doruhan/vira/config"
	"github.com/doruhan/vira/database"
	"github.com/doruhan/vira/devserver"
	"github.com/doruhan/vira/handlers"
	"github.com/doruhan/vira/middleware"
	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
	"github.com/doruhan/vira/pkg/crypto"
	"github.com/doruhan/vira/pkg/ratelimit"
	"github.com/doruhan/vira/provider"
	"github.com/doruhan/vira/repository"
	"github.com/doruhan/vira/services"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] vira starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d, embedded=%v)", cfg.Server.Port, cfg.Provider.Embedded)

	// ─── 2. Gömülü geliştirme platformu (opsiyonel) ───
	var devSrv *devserver.Server
	if cfg.Provider.Embedded {
		devSrv, err = devserver.New(cfg.LocalStore.Path+"-provider.db", cfg.Provider.JWTSecret)
		if err != nil {
			log.Fatalf("[main] failed to start embedded provider: %v", err)
		}

		addr, err := listenAddr(cfg.Provider.URL)
		if err != nil {
			log.Fatalf("[main] invalid PROVIDER_URL: %v", err)
		}
		go func() {
			log.Printf("[main] embedded provider listening on %s", addr)
			if err := http.ListenAndServe(addr, devSrv.Router()); err != nil && err != http.ErrServerClosed {
				log.Fatalf("[main] embedded provider error: %v", err)
			}
		}()
	}

	// ─── 3. Lokal store ───
	db, err := database.New(cfg.LocalStore.Path, database.LocalStoreMigrations)
	if err != nil {
		log.Fatalf("[main] failed to open local store: %v", err)
	}
	defer db.Conn.Close()

	// ─── 4. Repository'ler ───
	readStateRepo := repository.NewSQLiteReadStateRepo(db.Conn)
	peerRepo := repository.NewSQLitePeerRepo(db.Conn)
	sessionRepo := repository.NewSQLiteSessionRepo(db.Conn)

	// ─── 5. Event bus ───
	eventBus := bus.New()

	// Debug aboneliği: tüm uygulama event'lerini loglar. UI katmanı aynı
	// Subscribe API'si ile bağlanır.
	debugSub := eventBus.Subscribe()
	go func() {
		for event := range debugSub.Events {
			log.Printf("[bus] op=%s seq=%d", event.Op, event.Seq)
		}
	}()

	// ─── 6. Provider client + oturum ───
	client := provider.New(cfg.Provider.URL, cfg.Provider.AnonKey)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Oturum bootstrap sırası: env token → kullanıcı adı/şifre ile sign-in →
	// şifreli lokal cache. Cache, LOCAL_STORE_KEY set edildiğinde AES-256-GCM
	// ile diske yazılır; böylece sonraki açılışlar şifre istemez.
	var storeKey []byte
	if cfg.LocalStore.Key != "" {
		storeKey, err = crypto.DeriveKey(cfg.LocalStore.Key)
		if err != nil {
			log.Fatalf("[main] invalid LOCAL_STORE_KEY: %v", err)
		}
	}

	switch {
	case cfg.Provider.AccessToken != "":
		client.SetSession(cfg.Provider.AccessToken)
	case cfg.Provider.Username != "":
		if err := client.SignIn(ctx, cfg.Provider.Username, cfg.Provider.Password); err != nil {
			log.Fatalf("[main] sign-in failed: %v", err)
		}
	case storeKey != nil:
		ciphertext, err := sessionRepo.Load(ctx)
		if err != nil {
			log.Fatalf("[main] no cached session: %v", err)
		}
		token, err := crypto.Decrypt(ciphertext, storeKey)
		if err != nil {
			log.Fatalf("[main] session cache unreadable: %v", err)
		}
		client.SetSession(token)
	default:
		log.Fatalf("[main] no session: set PROVIDER_ACCESS_TOKEN or VIRA_USERNAME/VIRA_PASSWORD")
	}

	// Geçerli token'ı cache'le — bir sonraki açılış sign-in atlayabilsin.
	if storeKey != nil && client.AccessToken() != "" {
		if ciphertext, err := crypto.Encrypt(client.AccessToken(), storeKey); err == nil {
			if err := sessionRepo.Save(ctx, ciphertext); err != nil {
				log.Printf("[main] session cache write failed: %v", err)
			}
		}
	}

	// ─── 7. Service'ler ───
	sessionSvc := services.NewSessionService(client, client, peerRepo, eventBus)
	convSvc := services.NewConversationService(client, sessionSvc, readStateRepo, eventBus)
	callSvc := services.NewCallService(client, client, sessionSvc, eventBus)
	videoSvc := services.NewVideoService(cfg.Video)

	// Peer seçilince: geçmiş yüklenir, peer'dan gelenler okundu işaretlenir.
	// Callback goroutine'de çalışır — SelectPeer çağıranı bloklamaz.
	sessionSvc.OnPeerSelected(func(peer *models.User) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			if _, err := convSvc.LoadHistory(ctx, peer.ID); err != nil {
				log.Printf("[main] history load failed for %s: %v", peer.Username, err)
				return
			}
			if err := convSvc.MarkRead(ctx, peer.ID); err != nil {
				log.Printf("[main] mark read failed for %s: %v", peer.Username, err)
			}
		}()
	})

	localUser, err := sessionSvc.ResolveLocalUser(ctx)
	if err != nil {
		log.Fatalf("[main] identity resolution failed: %v", err)
	}

	// Son seçili peer'ı geri yükle — seçim yoksa sessizce boş başlanır.
	if _, err := sessionSvc.RestoreSelectedPeer(ctx); err != nil && !errors.Is(err, pkg.ErrNotFound) {
		log.Printf("[main] peer restore failed: %v", err)
	}

	// Açılışta okunmamış rozetleri hesapla.
	if _, err := convSvc.UnreadCounts(ctx); err != nil {
		log.Printf("[main] initial unread recompute failed: %v", err)
	}

	// ─── 8. Realtime abonelikleri ───
	//
	// İki bağımsız abonelik: mesaj akışı (bize gelen INSERT'ler) ve arama
	// akışı (bize gelen davetler + davetlerimize gelen cevaplar). Biri
	// koparsa diğeri yaşamaya devam eder.
	msgSub, err := client.Subscribe(ctx, provider.SubscribePayload{
		Topic:        "messages:" + localUser.ID,
		Table:        "messages",
		InsertFilter: "receiver_id=eq." + localUser.ID,
	}, decodeInto(convSvc.HandleInsert), nil)
	if err != nil {
		log.Fatalf("[main] message subscription failed: %v", err)
	}

	callSub, err := client.Subscribe(ctx, provider.SubscribePayload{
		Topic:        "calls:" + localUser.ID,
		Table:        "call_notifications",
		InsertFilter: "to_user_id=eq." + localUser.ID,
		UpdateFilter: "from_user_id=eq." + localUser.ID,
	}, decodeInto(callSvc.HandleInsert), decodeInto(callSvc.HandleUpdate))
	if err != nil {
		log.Fatalf("[main] call subscription failed: %v", err)
	}

	// ─── 9. HTTP server ───
	videoHandler := handlers.NewVideoHandler(videoSvc)
	authMW := middleware.NewAuthMiddleware(cfg.Provider.JWTSecret)
	tokenLimiter := ratelimit.New(30, time.Minute)
	defer tokenLimiter.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("POST /api/token",
		middleware.RateLimit(tokenLimiter)(authMW.Require(http.HandlerFunc(videoHandler.Token))))
	mux.Handle("POST /api/create-room",
		middleware.RateLimit(tokenLimiter)(authMW.Require(http.HandlerFunc(videoHandler.CreateRoom))))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000", // web dev
			"http://localhost:1420", // Tauri dev
			"tauri://localhost",     // Tauri production
		},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── 10. Graceful shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Önce realtime abonelikleri kapanır — iki bağımsız yaşam döngüsü de
	// burada sonlanır. Sonra bus ve (varsa) gömülü platform, en son HTTP.
	msgSub.Close()
	callSub.Close()
	eventBus.Shutdown()
	if devSrv != nil {
		devSrv.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] stopped gracefully")
}

// decodeInto, realtime akışından gelen ham satırı model tipine çözer ve
// handler'a iletir. Bozuk satır loglanır ve atlanır — akış kesilmez.
func decodeInto[T any](handler func(T)) func(json.RawMessage) {
	return func(record json.RawMessage) {
		var v T
		if err := json.Unmarshal(record, &v); err != nil {
			log.Printf("[main] malformed realtime record: %v", err)
			return
		}
		handler(v)
	}
}

// listenAddr, provider URL'inden dinleme adresini türetir
// (http://localhost:8000 → ":8000").
func listenAddr(providerURL string) (string, error) {
	u, err := url.Parse(providerURL)
	if err != nil {
		return "", err
	}
	port := u.Port()
	if port == "" {
		port = "8000"
	}
	return ":" + port, nil
}
