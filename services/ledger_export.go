package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
	"github.com/Dosada05/competition-system/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const ledgerContentType = "text/csv"

var ledgerHeader = []string{
	"vote_id", "created_at", "vote_day", "voter_id", "voter_email",
	"contestant_id", "vote_count", "amount_paid", "payment_intent_id", "is_double_vote",
}

type LedgerExport struct {
	Key        string    `json:"key"`
	URL        string    `json:"url,omitempty"`
	Rows       int       `json:"rows"`
	TotalVotes int       `json:"total_votes"`
	CreatedAt  time.Time `json:"created_at"`
}

// LedgerExporter writes a competition's vote ledger to object storage for reconciliation
// against the contestant counters.
type LedgerExporter struct {
	competitions repositories.CompetitionRepository
	votes        repositories.VoteRepository
	uploader     storage.FileUploader
	now          func() time.Time
	logger       *slog.Logger
}

// NewLedgerExporter accepts a nil uploader; exports then fail with ErrStorageNotConfigured.
func NewLedgerExporter(competitions repositories.CompetitionRepository, votes repositories.VoteRepository, uploader storage.FileUploader, logger *slog.Logger) *LedgerExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerExporter{
		competitions: competitions,
		votes:        votes,
		uploader:     uploader,
		now:          time.Now,
		logger:       logger,
	}
}

func (e *LedgerExporter) ExportLedger(ctx context.Context, competitionID string) (*LedgerExport, error) {
	if e.uploader == nil {
		return nil, ErrStorageNotConfigured
	}

	var votes []models.Vote
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := e.competitions.GetByID(gCtx, competitionID)
		return handleRepositoryError(err)
	})
	g.Go(func() error {
		list, err := e.votes.ListByCompetition(gCtx, competitionID)
		if err != nil {
			return fmt.Errorf("failed to list votes: %w", err)
		}
		votes = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	body, total, err := renderLedgerCSV(votes)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	key := fmt.Sprintf("%s%s-%s.csv", ledgerPrefix(competitionID), now.Format("20060102T150405Z"), uuid.NewString())
	res, err := e.uploader.Upload(ctx, key, ledgerContentType, bytes.NewReader(body))
	if err != nil {
		e.logger.ErrorContext(ctx, "ledger upload failed", slog.String("competition_id", competitionID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to upload ledger: %w", err)
	}

	e.logger.InfoContext(ctx, "ledger exported",
		slog.String("competition_id", competitionID),
		slog.String("key", res.Key),
		slog.Int("rows", len(votes)),
	)
	return &LedgerExport{
		Key:        res.Key,
		URL:        res.Location,
		Rows:       len(votes),
		TotalVotes: total,
		CreatedAt:  now,
	}, nil
}

// DeleteLedgerExport removes one uploaded export of the competition. name is the last path
// element of the export key.
func (e *LedgerExporter) DeleteLedgerExport(ctx context.Context, competitionID, name string) error {
	if e.uploader == nil {
		return ErrStorageNotConfigured
	}
	if name == "" || strings.ContainsAny(name, "/\\") || !strings.HasSuffix(name, ".csv") {
		return fmt.Errorf("%w: %q", ErrInvalidLedgerExport, name)
	}
	if _, err := e.competitions.GetByID(ctx, competitionID); err != nil {
		return handleRepositoryError(err)
	}

	key := ledgerPrefix(competitionID) + name
	if err := e.uploader.Delete(ctx, key); err != nil {
		e.logger.ErrorContext(ctx, "ledger export delete failed", slog.String("key", key), slog.Any("error", err))
		return fmt.Errorf("failed to delete ledger export: %w", err)
	}
	e.logger.InfoContext(ctx, "ledger export deleted", slog.String("competition_id", competitionID), slog.String("key", key))
	return nil
}

func ledgerPrefix(competitionID string) string {
	return "ledgers/" + competitionID + "/"
}

func renderLedgerCSV(votes []models.Vote) ([]byte, int, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ledgerHeader); err != nil {
		return nil, 0, err
	}

	total := 0
	for _, v := range votes {
		total += v.VoteCount
		record := []string{
			v.ID,
			v.CreatedAt.UTC().Format(time.RFC3339),
			v.VoteDay,
			v.VoterID,
			v.VoterEmail,
			v.ContestantID,
			strconv.Itoa(v.VoteCount),
			strconv.Itoa(v.AmountPaid),
			derefString(v.PaymentIntentID),
			strconv.FormatBool(v.IsDoubleVote),
		}
		if err := w.Write(record); err != nil {
			return nil, 0, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("failed to render ledger csv: %w", err)
	}
	return buf.Bytes(), total, nil
}
