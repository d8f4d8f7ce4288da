package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dukerupert/eventboard/internal/identity"
	"github.com/dukerupert/eventboard/internal/middleware"
	"github.com/dukerupert/eventboard/internal/server"
)

var serveFlags = map[string]cobraflags.Flag{
	configFlag: configFlagDef(),
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), serveFlags[configFlag].GetString())
		},
	}
	cobraflags.RegisterMap(cmd, serveFlags)
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	cfg, db, logger, err := setup(configPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	var limiter middleware.Limiter
	if cfg.RateLimit.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			return fmt.Errorf("ratelimit.redis_url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		limiter = middleware.NewRedisLimiter(client)
		logger.Info("rate limits shared through redis", "addr", opts.Addr)
	}

	provider := identity.NewOAuthProvider(identity.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		AuthURL:      cfg.OAuth.AuthURL,
		TokenURL:     cfg.OAuth.TokenURL,
		UserInfoURL:  cfg.OAuth.UserInfoURL,
		RedirectURL:  cfg.OAuth.RedirectURL,
		Scopes:       cfg.OAuth.Scopes,
	})

	srv := server.New(server.Options{
		Config:   cfg,
		DB:       db,
		Provider: provider,
		Limiter:  limiter,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if rl, ok := srv.RateLimiter().(*middleware.RateLimiter); ok {
		go func() {
			ticker := time.NewTicker(cfg.RateLimit.Window + time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					rl.Cleanup()
				}
			}
		}()
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("eventboard listening", "addr", httpServer.Addr, "base_url", cfg.Server.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
