package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	JWT       JWTConfig
	Firebase  FirebaseConfig
	Vision    VisionConfig
	Geocode   GeocodeConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
	StorageBucket   string
}

// VisionConfig configures the external caption provider. APIKeys holds the
// credential slots the adapter rotates through on failure.
type VisionConfig struct {
	BaseURL string
	Model   string
	APIKeys []string
	Timeout time.Duration
}

type GeocodeConfig struct {
	BaseURL string
	Timeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// StoreConfig selects the report store backend. "firestore" in production;
// "memory" for local development without credentials.
type StoreConfig struct {
	Backend string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Host:        getEnv("HOST", "0.0.0.0"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "dev-secret-key"),
			Expiration:             parseDuration(getEnv("JWT_EXPIRATION", "30m"), 30*time.Minute),
			RefreshTokenExpiration: parseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "168h"), 7*24*time.Hour),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", "civiclens-dev"),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./serviceAccountKey.json"),
			StorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", "civiclens-dev.appspot.com"),
		},
		Vision: VisionConfig{
			BaseURL: getEnv("VISION_BASE_URL", "https://api.sambanova.ai/v1"),
			Model:   getEnv("VISION_MODEL", "Llama-3.2-90B-Vision-Instruct"),
			APIKeys: parseStringSlice(getEnv("VISION_API_KEYS", "")),
			Timeout: parseDuration(getEnv("VISION_TIMEOUT", "30s"), 30*time.Second),
		},
		Geocode: GeocodeConfig{
			BaseURL: getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
			Timeout: parseDuration(getEnv("GEOCODE_TIMEOUT", "10s"), 10*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		RateLimit: RateLimitConfig{
			Requests: parseInt(getEnv("RATE_LIMIT_REQUESTS", "100"), 100),
			Window:   parseDuration(getEnv("RATE_LIMIT_WINDOW", "60"), 60*time.Second),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "firestore"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	// If it's just a number, assume seconds
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func parseStringSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) Validate() {
	if c.JWT.Secret == "dev-secret-key" && c.IsProduction() {
		log.Fatal("JWT_SECRET must be set in production")
	}
	if c.Store.Backend != "firestore" && c.Store.Backend != "memory" {
		log.Fatalf("STORE_BACKEND must be firestore or memory, got %q", c.Store.Backend)
	}
	if c.Store.Backend == "firestore" {
		if c.Firebase.ProjectID == "" {
			log.Fatal("FIREBASE_PROJECT_ID must be set")
		}
		if _, err := os.Stat(c.Firebase.CredentialsPath); os.IsNotExist(err) {
			log.Fatalf("Firebase credentials file not found: %s", c.Firebase.CredentialsPath)
		}
	}
	if len(c.Vision.APIKeys) == 0 {
		log.Println("⚠️  VISION_API_KEYS not set; captioning will rely on the fallback classifier")
	}
}
