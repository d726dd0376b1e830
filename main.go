package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mossylife/pulse/internal/config"
	"github.com/mossylife/pulse/internal/core"
	"github.com/mossylife/pulse/internal/httpapi"
	"github.com/mossylife/pulse/internal/metrics"
	"github.com/mossylife/pulse/internal/store"
)

func main() {
	// Fast JSON logs by default; pretty if running in a TTY/dev
	if isatty() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	cfg := config.Load()

	var dsnFlag, backendFlag string
	flag.StringVar(&dsnFlag, "dsn", "", "SQLite DSN (overrides env DB_DSN)")
	flag.StringVar(&backendFlag, "backend", "", "store backend: sqlite, redis or memory (overrides env STORE_BACKEND)")
	flag.Parse()
	if dsnFlag != "" {
		cfg.DBDSN = dsnFlag
	}
	if backendFlag != "" {
		cfg.StoreBackend = backendFlag
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("open store")
	}
	defer st.Close()

	svc := core.NewService(st)

	// Reclaim expired visitor marks and click events in the background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runJanitor(ctx, st)

	// HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpapi.NewRouter(cfg, svc),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.Port).Str("backend", cfg.StoreBackend).Msg("collector starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal")
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("bye")
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		db, err := sql.Open("sqlite3", cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		// Connection pool tuning
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := store.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		return store.NewSQLite(db), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, err
		}
		return store.NewRedis(rdb), nil
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func runJanitor(ctx context.Context, st store.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := st.PurgeExpired(ctx, time.Now())
			if err != nil {
				log.Error().Err(err).Msg("purge expired")
				continue
			}
			if n > 0 {
				metrics.ExpiredPurged.Add(float64(n))
				log.Info().Int64("rows", n).Msg("purged expired rows")
			}
		case <-ctx.Done():
			return
		}
	}
}

func isatty() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
