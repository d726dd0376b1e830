package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port           int
	StoreBackend   string // sqlite | redis | memory
	DBDSN          string
	RedisAddr      string
	TrackRateRPS   float64
	TrackRateBurst int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getfloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func Load() Config {
	return Config{
		Port:           getint("PORT", 8080),
		StoreBackend:   getenv("STORE_BACKEND", "sqlite"),
		DBDSN:          getenv("DB_DSN", "file:pulse.db?_foreign_keys=on"),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		TrackRateRPS:   getfloat("TRACK_RATE_RPS", 25.0),
		TrackRateBurst: getint("TRACK_RATE_BURST", 50),
	}
}
