// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — her struct tek bir concern'ü temsil eder.
type Config struct {
	Server     ServerConfig
	LocalStore LocalStoreConfig
	Provider   ProviderConfig
	Video      VideoConfig
}

// ServerConfig, HTTP server ayarları (token / create-room endpoint'leri).
type ServerConfig struct {
	Host string
	Port int
}

// LocalStoreConfig, client-local SQLite store ayarları.
// Okunan mesaj set'i ve seçili peer burada persist edilir.
type LocalStoreConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/vira.db)

	// Key, oturum token cache'ini şifreleyen cihaz anahtarı (64 hex karakter).
	// Boşsa token diske YAZILMAZ — her açılışta yeniden oturum açılır.
	Key string
}

// ProviderConfig, auth/storage/realtime provider bağlantı ayarları.
//
// Embedded=true ise dış provider yerine devserver paketi process içinde
// başlatılır — development ve test için (dış servis gerekmez).
type ProviderConfig struct {
	URL       string // Provider base URL (ör: http://localhost:8000)
	AnonKey   string // Public API anahtarı — her istekte apikey header'ı olarak gider
	JWTSecret string // Provider'ın oturum token'larını imzaladığı anahtar
	Embedded  bool

	// Oturum bootstrap'i: AccessToken doğrudan verilirse kullanılır;
	// verilmezse Username + Password ile sign-in yapılır.
	AccessToken string
	Username    string
	Password    string
}

// VideoConfig, video SFU (token-issuing) ayarları.
type VideoConfig struct {
	URL       string // SFU server URL (ör: ws://localhost:7880)
	APIKey    string
	APISecret string
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
func Load() (*Config, error) {
	// Dosya yoksa hata vermez, sessizce devam eder.
	// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	embedded, err := strconv.ParseBool(getEnv("PROVIDER_EMBEDDED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_EMBEDDED: %w", err)
	}

	jwtSecret := getEnv("PROVIDER_JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("PROVIDER_JWT_SECRET environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		LocalStore: LocalStoreConfig{
			Path: getEnv("LOCAL_STORE_PATH", "./data/vira.db"),
			Key:  getEnv("LOCAL_STORE_KEY", ""),
		},
		Provider: ProviderConfig{
			URL:       getEnv("PROVIDER_URL", "http://localhost:8000"),
			AnonKey:   getEnv("PROVIDER_ANON_KEY", ""),
			JWTSecret: jwtSecret,
			Embedded:  embedded,

			AccessToken: getEnv("PROVIDER_ACCESS_TOKEN", ""),
			Username:    getEnv("VIRA_USERNAME", ""),
			Password:    getEnv("VIRA_PASSWORD", ""),
		},
		Video: VideoConfig{
			URL:       getEnv("VIDEO_URL", "ws://localhost:7880"),
			APIKey:    getEnv("VIDEO_API_KEY", ""),
			APISecret: getEnv("VIDEO_API_SECRET", ""),
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
