package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"rating-ledger/internal/api"
	"rating-ledger/internal/constants"
	"rating-ledger/internal/domain"
	"rating-ledger/internal/repository"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

type ResultLookup interface {
	GetMatchResult(ctx context.Context, matchID string) (*api.MatchResult, error)
}

// ReportService turns a pasted match reference into a submission.
type ReportService struct {
	lookup  ResultLookup
	players *repository.PlayerRepository
	ledger  *LedgerService
	logger  zerolog.Logger
}

func NewReportService(results *api.ResultsClient, players *repository.PlayerRepository, ledger *LedgerService, logger zerolog.Logger) *ReportService {
	return newReportService(results, players, ledger, logger)
}

func newReportService(lookup ResultLookup, players *repository.PlayerRepository, ledger *LedgerService, logger zerolog.Logger) *ReportService {
	return &ReportService{lookup: lookup, players: players, ledger: ledger, logger: logger}
}

// Report resolves reference against the result service and submits the
// outcome. Transient storage failures are retried with the same match id.
func (s *ReportService) Report(ctx context.Context, reference string) (*domain.CommitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	matchID, err := ExtractMatchID(reference)
	if err != nil {
		return rejectedInvalid(err)
	}

	apiCtx, apiCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer apiCancel()

	result, err := s.lookup.GetMatchResult(apiCtx, matchID)
	if err != nil {
		s.logger.Error().Err(err).Str("match_id", matchID).Msg("failed to fetch match result")
		return nil, fmt.Errorf("failed to fetch match result: %w", err)
	}

	winner, err := s.players.GetByAlias(ctx, result.Winner)
	if err != nil {
		return s.aliasFailure(err, result.Winner)
	}
	loser, err := s.players.GetByAlias(ctx, result.Loser)
	if err != nil {
		return s.aliasFailure(err, result.Loser)
	}

	candidate := domain.Candidate{
		MatchID:    result.MatchID,
		WinnerID:   winner.ID,
		LoserID:    loser.ID,
		MarginData: result.Margin(),
	}

	var commit *domain.CommitResult
	backoff := retry.WithMaxRetries(constants.SubmitMaxRetries, retry.NewExponential(constants.SubmitRetryBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := s.ledger.Submit(ctx, candidate)
		if errors.Is(err, domain.ErrTransientStorage) {
			s.logger.Warn().Err(err).Str("match_id", candidate.MatchID).Msg("retrying submission")
			return retry.RetryableError(err)
		}
		commit = res
		return err
	})
	return commit, err
}

// ExtractMatchID takes a pasted link or a bare id and returns the external
// match id: the last path segment of a URL, without query or fragment.
func ExtractMatchID(reference string) (string, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return "", fmt.Errorf("reference is empty: %w", domain.ErrInvalidInput)
	}

	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		ref = u.Path
	} else if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}

	segments := strings.Split(strings.Trim(ref, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return "", fmt.Errorf("reference %q has no match id: %w", reference, domain.ErrInvalidInput)
	}
	return id, nil
}

func (s *ReportService) aliasFailure(err error, alias string) (*domain.CommitResult, error) {
	if isRejection(err) {
		s.logger.Info().Err(err).Str("alias", alias).Msg("reported player is not registered")
		return rejectedInvalid(err)
	}
	return nil, err
}

func rejectedInvalid(err error) (*domain.CommitResult, error) {
	return &domain.CommitResult{Status: domain.StatusRejectedInvalid, Reason: err.Error()}, err
}
