package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/setorandev/setoran-client/internal/config"
	"github.com/setorandev/setoran-client/internal/logger"
	"github.com/setorandev/setoran-client/internal/model"
	"github.com/setorandev/setoran-client/internal/sandbox"
	"github.com/setorandev/setoran-client/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("realm", cfg.KCRealm).
		Msg("Starting setoran sandbox")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Seed Fixtures ─────────────────────────────────────────────────
	users, err := sandbox.DevUsers(cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed dev users")
	}
	advisor := model.Advisor{
		NIP:   "198701012015031004",
		Name:  "Dr. H. Masrul Indrayana",
		Email: "masrul.indrayana@uin-suska.ac.id",
	}

	identity := sandbox.NewIdentity(cfg, users, log)
	api := sandbox.NewAPI(sandbox.NewStore(advisor), log)
	router := sandbox.SetupRouter(cfg, identity, api, log)

	// ─── Start Server ──────────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Sandbox listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down sandbox")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
}
