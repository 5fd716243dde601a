package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MySQLDSN       string
	RedisURL       string
	JWTSecret      string
	JWTTTL         time.Duration
	Port           string
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
	LLMTimeout     time.Duration
	TLSCertFile    string
	TLSKeyFile     string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("config: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() Config {
	return Config{
		MySQLDSN:       getenv("MYSQL_DSN", "dualagents:dualagents@tcp(127.0.0.1:3306)/dualagents"),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      getenv("JWT_SECRET", ""),
		JWTTTL:         getDuration("JWT_TTL", 24*time.Hour),
		Port:           getenv("PORT", "5000"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimit:      getInt("RATE_LIMIT", 30),
		RateWindow:     getDuration("RATE_WINDOW", time.Minute),
		LLMTimeout:     getDuration("LLM_TIMEOUT", 60*time.Second),
		TLSCertFile:    os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:     os.Getenv("TLS_KEY_FILE"),
	}
}
