package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/competition-system/config"
	"github.com/Dosada05/competition-system/db"
	"github.com/Dosada05/competition-system/editability"
	"github.com/Dosada05/competition-system/live"
	"github.com/Dosada05/competition-system/payments"
	"github.com/Dosada05/competition-system/repositories"
	"github.com/Dosada05/competition-system/services"
	"github.com/Dosada05/competition-system/storage"
)

// app holds the wired services shared by the CLI commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	dbConn *sql.DB
	hub    *live.Hub

	competitionService *services.CompetitionService
	voteService        *services.VoteService
	paymentService     *services.PaymentService
	authService        services.AuthService
	ledgerExporter     *services.LedgerExporter
}

type stores struct {
	competitions repositories.CompetitionRepository
	contestants  repositories.ContestantRepository
	profiles     repositories.ProfileRepository
	votes        repositories.VoteRepository
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var st stores
	if cfg.UsesMemoryStore() {
		mem := repositories.NewMemoryStore()
		mem.SetAtomicIncrementAvailable(true)
		st = stores{mem.Competitions(), mem.Contestants(), mem.Profiles(), mem.Votes()}
		logger.Warn("using in-memory store; data is lost on restart")
	} else {
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.dbConn = dbConn
		st = stores{
			competitions: repositories.NewPostgresCompetitionRepository(dbConn),
			contestants:  repositories.NewPostgresContestantRepository(dbConn),
			profiles:     repositories.NewPostgresProfileRepository(dbConn),
			votes:        repositories.NewPostgresVoteRepository(dbConn),
		}
		logger.Info("database connection established")
	}

	var provider payments.Provider
	if cfg.PaymentsConfigured() {
		p, err := payments.NewStripeProvider(cfg.StripeSecretKey, cfg.PaymentCurrency)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize payment provider: %w", err)
		}
		provider = p
		logger.Info("stripe payment provider initialized", slog.String("currency", cfg.PaymentCurrency))
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set; paid voting is disabled")
	}

	var uploader storage.FileUploader
	if cfg.R2.Configured() {
		u, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		uploader = u
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2.BucketName))
	} else {
		logger.Warn("R2 storage not configured; ledger export is disabled")
	}

	policy := editability.NewPolicy(editability.DefaultRules(), editability.DefaultMessages(), logger)
	clock := services.NewVoteClock(cfg.VoteDayLocation, nil)
	a.hub = live.NewHub(logger)

	a.competitionService = services.NewCompetitionService(st.competitions, st.contestants, policy, clock, logger)
	a.voteService = services.NewVoteService(st.votes, st.contestants, st.profiles, clock, a.hub, cfg.AllowNonAtomicCounters, logger)
	a.paymentService = services.NewPaymentService(provider, a.voteService, a.competitionService, cfg.PaymentCurrency, logger)
	a.authService = services.NewAuthService(st.profiles)
	a.ledgerExporter = services.NewLedgerExporter(st.competitions, st.votes, uploader, logger)
	return a, nil
}

func (a *app) Close() {
	if a.dbConn == nil {
		return
	}
	if err := a.dbConn.Close(); err != nil {
		a.logger.Error("failed to close database connection", slog.Any("error", err))
		return
	}
	a.logger.Info("database connection closed")
}

// runStageScheduler advances competition stages by date until ctx is done.
func (a *app) runStageScheduler(ctx context.Context) {
	interval := a.cfg.StatusSchedulerInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	a.logger.Info("competition stage scheduler started", slog.Duration("interval", interval))

	if err := a.competitionService.AutoAdvanceStages(ctx); err != nil {
		a.logger.Error("scheduler: initial run failed", slog.Any("error", err))
	}
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("competition stage scheduler stopped")
			return
		case <-ticker.C:
			if err := a.competitionService.AutoAdvanceStages(ctx); err != nil {
				a.logger.Error("scheduler: periodic run failed", slog.Any("error", err))
			}
		}
	}
}
