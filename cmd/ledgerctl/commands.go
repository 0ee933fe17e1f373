package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rating-ledger/internal/domain"
	"rating-ledger/internal/service"
)

var errDrift = errors.New("ledger replay disagrees with stored ratings")

type app struct {
	players   *service.PlayerService
	ledger    *service.LedgerService
	analytics *service.AnalyticsService
	reports   *service.ReportService
	out       io.Writer
}

func (a *app) register(ctx context.Context, name, alias string) error {
	var aliasPtr *string
	if alias != "" {
		aliasPtr = &alias
	}

	player, err := a.players.Register(ctx, name, aliasPtr)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered %s (%s) at %d\n", player.DisplayName, player.ID, player.Rating)
	return nil
}

func (a *app) submit(ctx context.Context, matchID, winnerName, loserName, score string) error {
	margin, err := parseScore(score)
	if err != nil {
		return err
	}
	winner, err := a.players.GetByDisplayName(ctx, winnerName)
	if err != nil {
		return fmt.Errorf("winner %q: %w", winnerName, err)
	}
	loser, err := a.players.GetByDisplayName(ctx, loserName)
	if err != nil {
		return fmt.Errorf("loser %q: %w", loserName, err)
	}

	res, err := a.ledger.Submit(ctx, domain.Candidate{
		MatchID:    matchID,
		WinnerID:   winner.ID,
		LoserID:    loser.ID,
		MarginData: margin,
	})
	if err != nil {
		return err
	}
	a.printResult(res)
	return nil
}

func (a *app) report(ctx context.Context, reference string) error {
	res, err := a.reports.Report(ctx, reference)
	if err != nil {
		return err
	}
	a.printResult(res)
	return nil
}

func (a *app) printResult(res *domain.CommitResult) {
	e := res.Entry
	switch res.Status {
	case domain.StatusCommitted:
		fmt.Fprintf(a.out, "committed %s: delta %d, winner now %d, loser now %d\n",
			e.MatchID, e.Delta, e.WinnerRatingAfter, e.LoserRatingAfter)
	case domain.StatusRejectedDuplicate:
		fmt.Fprintf(a.out, "duplicate %s: already recorded with delta %d\n", e.MatchID, e.Delta)
	default:
		fmt.Fprintf(a.out, "%s: %s\n", res.Status, res.Reason)
	}
}

func (a *app) standings(ctx context.Context) error {
	players, err := a.players.Standings(ctx)
	if err != nil {
		return err
	}
	for i, p := range players {
		fmt.Fprintf(a.out, "%3d. %-24s %5d  (%d played)\n", i+1, p.DisplayName, p.Rating, p.MatchesPlayed)
	}
	return nil
}

func (a *app) history(ctx context.Context, name string) error {
	player, err := a.players.GetByDisplayName(ctx, name)
	if err != nil {
		return err
	}
	points, err := a.analytics.RatingHistory(ctx, player.ID)
	if err != nil {
		return err
	}
	for _, p := range points {
		match := p.MatchID
		if match == "" {
			match = "created"
		}
		fmt.Fprintf(a.out, "%s  %5d  %s\n", p.At.Format("2006-01-02 15:04:05"), p.Rating, match)
	}
	return nil
}

func (a *app) stats(ctx context.Context, name string) error {
	player, err := a.players.GetByDisplayName(ctx, name)
	if err != nil {
		return err
	}
	stats, err := a.analytics.Stats(ctx, player.ID)
	if err != nil {
		return err
	}

	var trend strings.Builder
	for _, o := range stats.Trend {
		trend.WriteString(o.String())
	}
	fmt.Fprintf(a.out, "%s: rating %d, %dW %dL, win rate %.1f%%, trend %s, streak %t\n",
		stats.Player.DisplayName, stats.Player.Rating, stats.Wins, stats.Losses,
		stats.WinRate*100, trend.String(), stats.Streak)
	return nil
}

func (a *app) verify(ctx context.Context) error {
	drifts, err := a.analytics.Verify(ctx)
	if err != nil {
		return err
	}
	if len(drifts) == 0 {
		fmt.Fprintln(a.out, "ledger consistent")
		return nil
	}
	for _, d := range drifts {
		fmt.Fprintf(a.out, "%s (%s): stored %d/%d, replayed %d/%d\n",
			d.DisplayName, d.PlayerID, d.StoredRating, d.StoredMatchesPlayed,
			d.ReplayedRating, d.ReplayedMatchesPlayed)
	}
	return fmt.Errorf("%w: %d players", errDrift, len(drifts))
}

// parseScore reads "3-1" style scores. An empty string means no margin.
func parseScore(score string) (*domain.MarginData, error) {
	if score == "" {
		return nil, nil
	}
	w, l, ok := strings.Cut(score, "-")
	if !ok {
		return nil, fmt.Errorf("score %q must look like 3-1: %w", score, domain.ErrInvalidInput)
	}
	winner, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return nil, fmt.Errorf("score %q: %w", score, domain.ErrInvalidInput)
	}
	loser, err := strconv.Atoi(strings.TrimSpace(l))
	if err != nil {
		return nil, fmt.Errorf("score %q: %w", score, domain.ErrInvalidInput)
	}
	return &domain.MarginData{WinnerScore: winner, LoserScore: loser}, nil
}
