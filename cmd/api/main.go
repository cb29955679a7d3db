package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/restoplan/planner-backend/config"
	httpapi "github.com/restoplan/planner-backend/internal/api/http"
	"github.com/restoplan/planner-backend/internal/auth"
	"github.com/restoplan/planner-backend/internal/bootstrap"
	"github.com/restoplan/planner-backend/internal/dataservice"
	"github.com/restoplan/planner-backend/internal/identity"
	"github.com/restoplan/planner-backend/internal/logging"
	"github.com/restoplan/planner-backend/internal/session"
	"github.com/restoplan/planner-backend/internal/storage/local"
	"github.com/restoplan/planner-backend/internal/storage/remote"
)

const serviceName = "restaurant-planner"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]httpapi.Check{}

	kv, closeKV, err := openLocalKV(cfg.Local, checks)
	if err != nil {
		logger.LogError("startup", err)
		os.Exit(1)
	}
	defer closeKV()
	localStore := local.NewStore(kv,
		local.WithPollInterval(cfg.Local.PollInterval),
		local.WithLogger(logger),
	)

	dataOpts := []dataservice.Option{dataservice.WithLogger(logger)}
	deps := bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		IsAdmin:     cfg.IsAdmin,
		Checks:      checks,
		Logger:      logger,
	}

	var provider identity.Provider = identity.NewOfflineProvider()
	if cfg.RemoteConfigured() {
		fb, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			logger.LogError("startup", err)
			os.Exit(1)
		}
		defer fb.Close()

		directory := identity.NewDirectory(fb.Auth)
		dataOpts = append(dataOpts,
			dataservice.WithRemote(remote.NewClient(fb.Firestore, cfg.App.ApplicationID), cfg.Firebase.RetryAfter),
			dataservice.WithDirectory(directory),
		)
		provider = identity.NewFirebaseProvider(cfg.Firebase.AuthBaseURL, cfg.Firebase.APIKey, logger)
		deps.Verifier = directory
		deps.Accounts = directory
		logger.LogInfof("startup", "remote backend enabled for project %q", cfg.Firebase.ProjectID)
	} else {
		logger.LogInfo("startup", "no remote backend configured, running offline")
	}

	data := dataservice.New(localStore, cfg.App.ApplicationID, dataOpts...)
	if data.RemoteEnabled() {
		checks["remote"] = func(context.Context) error {
			if data.BackendFor("health") != dataservice.BackendRemote {
				return errors.New("remote backend is cooling down")
			}
			return nil
		}
	}

	sessions := session.NewManager(provider, data,
		session.WithLogger(logger),
		session.WithIdleTimeout(cfg.Session.IdleTimeout),
		session.WithAutosave(cfg.Session.AutosaveInterval),
	)
	if err := sessions.Start(); err != nil {
		logger.LogError("startup", err)
		os.Exit(1)
	}
	deps.Sessions = sessions

	if token := cfg.App.InitialAuthToken; token != "" {
		s, err := sessions.Authenticate(ctx, "startup", func(ctx context.Context, svc *identity.Service) (*identity.User, error) {
			return svc.SignInWithCustomToken(ctx, token)
		})
		if err != nil {
			logger.LogWarnf("startup", "initial sign-in failed: %s", identity.Message(err))
		} else {
			logger.LogInfof("startup", "signed in uid=%s from INITIAL_AUTH_TOKEN", s.UID())
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           bootstrap.BuildRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.LogInfof("startup", "listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogError("serve", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.LogInfo("shutdown", "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.LogError("shutdown", err)
	}
	sessions.Stop(shutdownCtx)
}

// openLocalKV picks Redis when REDIS_ADDR is set and a data directory
// otherwise, and registers the matching health check.
func openLocalKV(cfg config.LocalConfig, checks map[string]httpapi.Check) (local.KV, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		checks["local"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return local.NewRedisKV(client), func() { _ = client.Close() }, nil
	}

	kv, err := local.NewFileKV(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	checks["local"] = func(ctx context.Context) error {
		_, err := kv.Keys(ctx, "health")
		return err
	}
	return kv, func() {}, nil
}
