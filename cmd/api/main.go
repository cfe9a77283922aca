package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/avatar"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/contact"
	contactrepo "github.com/ovaphlow/pitchfork/service-contacts-go/internal/contact/repo"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/mail"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-contacts-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-contacts-go/pkg/config"
	"github.com/ovaphlow/pitchfork/service-contacts-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-contacts-go/pkg/utilities"
)

func main() {
	// config.Load reads .env first so the logger settings below see it too
	cfg, cfgErr := config.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	if cfgErr != nil {
		sugar.Fatalf("config: %v", cfgErr)
	}
	sugar.Infow("starting contacts api", "port", cfg.Port)

	sqlDB, err := database.Connect(context.Background(), database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, sqlDB); err != nil {
		cancelMigrate()
		sugar.Fatalf("db migrate: %v", err)
	}
	cancelMigrate()

	db := sqlx.NewDb(sqlDB, "postgres")

	handler, err := buildHandler(cfg, db, sugar)
	if err != nil {
		sugar.Fatalf("wiring: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infof("server listening on port %s", cfg.Port)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

func buildHandler(cfg config.Config, db *sqlx.DB, logger *zap.SugaredLogger) (http.Handler, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	var mailer mail.Sender
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	} else {
		logger.Warn("SMTP_HOST not set, verification emails are only logged")
		mailer = mail.NewLogSender(logger)
	}

	users := userrepo.NewUserRepo(db)
	userSvc := user.NewUserService(users, auth.BcryptHasher{Cost: cfg.BcryptCost}, tokens, mailer, cfg.BaseURL, logger)
	contactSvc := contact.NewService(contactrepo.NewRepo(db))
	avatarSvc := avatar.NewService(cfg.TmpDir, cfg.AvatarDir, users)

	return router.RegisterRoutes(logger, router.Deps{
		Users:       user.NewHandler(userSvc, logger),
		Contacts:    contact.NewHandler(contactSvc, logger),
		Avatars:     avatar.NewHandler(avatarSvc, logger),
		Guard:       auth.Guard(tokens, users, logger),
		AvatarDir:   cfg.AvatarDir,
		CORSOrigins: cfg.CORSOrigins,
		Ping:        db.PingContext,
	}), nil
}
