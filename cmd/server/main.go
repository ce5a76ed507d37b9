package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/secretwall/internal/config"
	"github.com/secretwall/internal/credential"
	"github.com/secretwall/internal/db"
	"github.com/secretwall/internal/domain"
	"github.com/secretwall/internal/http"
	"github.com/secretwall/internal/logger"
	"github.com/secretwall/internal/mongostore"
	"github.com/secretwall/internal/oauth"
	"github.com/secretwall/internal/service"
	"github.com/secretwall/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists (optional, won't error if missing)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.InitLogger(cfg.Environment)
	if envErr != nil {
		log.Debug("no .env file loaded", "error", envErr)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn("failed to close resource", "error", err)
			}
		}
	}()

	var sqlite *db.DB
	if cfg.NeedsSQLite() {
		database, err := db.Init(cfg.DatabasePath)
		if err != nil {
			return err
		}
		sqlite = database
		closers = append(closers, database)
	}

	var users domain.UserStore = sqlite
	if cfg.UsesMongo() {
		store, err := mongostore.Open(ctx, cfg.DatabaseURL, cfg.MongoDatabase, log)
		if err != nil {
			return err
		}
		users = store
		closers = append(closers, store)
	}

	var sessions domain.SessionStore
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return domain.WrapNetworkOperation("ping redis", err)
		}
		sessions = session.NewRedisStore(client)
		closers = append(closers, client)
		log.Info("session store ready", "store", "redis", "addr", cfg.Session.RedisAddr)
	default:
		sessions = sqlite.Sessions()
		log.Info("session store ready", "store", "sqlite")

		// Redis expires keys itself; only the SQLite table needs sweeping
		sweeper, err := session.NewSweeper(sessions, cfg.Session.SweepSchedule, log)
		if err != nil {
			return err
		}
		sweepDone := make(chan struct{})
		go func() {
			defer close(sweepDone)
			if err := sweeper.Start(ctx); err != nil {
				log.Error("session sweeper stopped", "error", err)
			}
		}()
		// Runs before the store closers
		defer func() {
			stop()
			<-sweepDone
		}()
	}

	hasher := credential.NewArgon2id(credential.Params{
		Time:        cfg.Argon2.Time,
		MemoryKiB:   cfg.Argon2.MemoryKiB,
		Parallelism: cfg.Argon2.Threads,
	})

	google, err := oauth.NewGoogle(oauth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.CallbackURL,
		StateSecret:  cfg.Google.StateSecret,
	})
	switch {
	case errors.Is(err, domain.ErrOAuthNotConfigured):
		log.Info("google sign-in disabled, CLIENT_ID not set")
		google = nil
	case err != nil:
		return err
	default:
		log.Info("google sign-in enabled", "callback", cfg.Google.CallbackURL)
	}

	server := http.NewServer(cfg, http.Deps{
		Accounts: service.NewAccountService(users, hasher, log),
		Secrets:  service.NewSecretService(users, log),
		Sessions: session.NewManager(sessions, cfg.Session.TTL, cfg.Session.SecureCookie, log),
		Google:   google,
		Logger:   log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
