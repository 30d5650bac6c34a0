// Command portal serves the council portal API.
//
// Run with -seed members.yaml to create the listed members and exit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/council-portal/internal/application"
	"github.com/example/council-portal/internal/config"
	httptransport "github.com/example/council-portal/internal/http"
	"github.com/example/council-portal/internal/logging"
	"github.com/example/council-portal/internal/mailer"
	"github.com/example/council-portal/internal/persistence"
	"github.com/example/council-portal/internal/persistence/gormstore"
	"github.com/example/council-portal/internal/report"
	"github.com/example/council-portal/internal/storage"
	"github.com/example/council-portal/internal/telemetry"
	"github.com/example/council-portal/internal/token"
)

const serviceName = "council-portal"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("portal stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("portal", flag.ContinueOnError)
	seedPath := flags.String("seed", "", "create the members listed in this YAML file and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.New(stdout, cfg.SlogLevel(), serviceName)

	store, err := gormstore.Open(cfg.DatabaseDSN, gormstore.Options{Debug: cfg.SlogLevel() <= slog.LevelDebug})
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	app, err := newApp(cfg, store, logger, time.Now)
	if err != nil {
		return err
	}

	if *seedPath != "" {
		file, err := loadSeedFile(*seedPath)
		if err != nil {
			return err
		}
		result, err := seedMembers(ctx, app.members, file, logger)
		if err != nil {
			return err
		}
		logger.Info("seed completed", "created", result.Created, "skipped", result.Skipped)
		return nil
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("council portal listening", "addr", server.Addr, "upload_dir", cfg.UploadDir)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	logger.Info("council portal stopped")
	return nil
}

// datastore is the storage backend behind every repository.
type datastore interface {
	persistence.MemberRepository
	persistence.SessionRepository
	persistence.ConvocationRepository
	persistence.MinutesRepository
	Ping(ctx context.Context) error
}

type app struct {
	handler http.Handler
	members *application.MemberService
}

// newApp wires services and handlers over store. now stamps tokens,
// convocations and minutes.
func newApp(cfg config.Config, store datastore, logger *slog.Logger, now func() time.Time) (*app, error) {
	issuer, err := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	photos, err := storage.NewPhotoStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	sender := mailer.NewSender(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		UseTLS:   cfg.SMTP.UseTLS,
	}, logger)
	notifier := mailer.NewConvocationNotifier(sender, cfg.PublicURL, logger)

	memberRepo := newMemberRepositoryAdapter(store)
	sessionRepo := newSessionRepositoryAdapter(store)
	convocationRepo := newConvocationRepositoryAdapter(store)
	minutesRepo := newMinutesRepositoryAdapter(store)

	authService := application.NewAuthServiceWithLogger(memberRepo, issuer, application.VerifyPassword, logger)
	memberService := application.NewMemberServiceWithLogger(memberRepo, photos, application.HashPassword, logger)
	sessionService := application.NewSessionServiceWithLogger(sessionRepo, logger)
	convocationService := application.NewConvocationServiceWithLogger(convocationRepo, sessionRepo, memberRepo, notifier, now, logger)
	minutesService := application.NewMinutesServiceWithLogger(minutesRepo, sessionRepo, memberRepo, report.NewRenderer(), now, logger)
	notificationService := application.NewNotificationServiceWithLogger(convocationRepo, logger)
	dashboardService := application.NewDashboardServiceWithLogger(sessionRepo, memberRepo, minutesRepo, cfg.RecentSessions, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, httptransport.CookieOptions{Secure: cfg.CookieSecure, TTL: cfg.TokenTTL}, logger),
		Members:      httptransport.NewMemberHandler(memberService, logger),
		Sessions:     httptransport.NewSessionHandler(sessionService, logger),
		Convocations: httptransport.NewConvocationHandler(convocationService, logger),
		Minutes:      httptransport.NewMinutesHandler(minutesService, logger),
		Overview:     httptransport.NewOverviewHandler(notificationService, dashboardService, logger),
		Validator:    authService,
		UploadDir:    photos.BasePath(),
		Metrics:      telemetry.Handler(),
		Health:       store.Ping,
		Logger:       logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Metrics(),
		},
	})

	return &app{handler: router, members: memberService}, nil
}
