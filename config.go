package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Config is read from the environment. A .env file is loaded first by the
// godotenv autoload import in main.go.
type Config struct {
	Port          string
	DBPath        string
	StaticDir     string
	PublicDir     string
	AdminUsername string
	AdminPassword string
	HashSalt      string
	ViewTTL       time.Duration
	MaxViews      int
}

func loadConfig() Config {
	cfg := Config{
		Port:          getenv("PORT", "8080"),
		DBPath:        getenv("DB_PATH", "portfolio.db"),
		StaticDir:     getenv("STATIC_DIR", "./static"),
		PublicDir:     getenv("PUBLIC_DIR", "./public"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		HashSalt:      os.Getenv("HASH_SALT"),
		ViewTTL:       30 * time.Minute,
		MaxViews:      1000,
	}

	// Default credentials for development (set both in production)
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "admin"
		if gin.Mode() == gin.DebugMode {
			log.Println("WARNING: Using default admin username. Set ADMIN_USERNAME environment variable.")
		}
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin123"
		if gin.Mode() == gin.DebugMode {
			log.Println("WARNING: Using default admin password. Set ADMIN_PASSWORD environment variable.")
		}
	}

	if raw := os.Getenv("VIEW_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			log.Printf("Ignoring invalid VIEW_TTL %q, using %s", raw, cfg.ViewTTL)
		} else {
			cfg.ViewTTL = ttl
		}
	}

	if raw := os.Getenv("MAX_VIEWS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			log.Printf("Ignoring invalid MAX_VIEWS %q, using %d", raw, cfg.MaxViews)
		} else {
			cfg.MaxViews = n
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
