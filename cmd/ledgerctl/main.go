package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"rating-ledger/internal/api"
	"rating-ledger/internal/cache"
	"rating-ledger/internal/config"
	"rating-ledger/internal/database"
	"rating-ledger/internal/db"
	"rating-ledger/internal/repository"
	"rating-ledger/internal/service"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
)

var CLI struct {
	Debug bool `help:"Whether to enable debug logging."`

	Register struct {
		Name  string `arg:"" help:"Display name of the new player."`
		Alias string `help:"External alias used by the results service."`
	} `cmd:"" help:"Register a player at the initial rating."`

	Submit struct {
		MatchID string `arg:"" name:"match-id" help:"Unique id of the match."`
		Winner  string `arg:"" help:"Display name of the winner."`
		Loser   string `arg:"" help:"Display name of the loser."`
		Score   string `help:"Final score as WINNER-LOSER, e.g. 3-1."`
	} `cmd:"" help:"Record a match outcome."`

	Report struct {
		Reference string `arg:"" help:"Match link or id known to the results service."`
	} `cmd:"" help:"Fetch a match from the results service and record it."`

	Standings struct{} `cmd:"" help:"Print players ordered by rating."`

	History struct {
		Player string `arg:"" help:"Display name of the player."`
	} `cmd:"" help:"Print a player's rating over time."`

	Stats struct {
		Player string `arg:"" help:"Display name of the player."`
	} `cmd:"" help:"Print a player's trend, streak and win rate."`

	Verify struct{} `cmd:"" help:"Replay the ledger and report players whose stored rating drifted."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("ledgerctl"),
		kong.Description("operate a rating ledger"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	level := zerolog.WarnLevel
	if CLI.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, closeFn, err := newApp(logger)
	if err != nil {
		writeError(err)
	}
	defer closeFn()

	switch kctx.Command() {
	case "register <name>":
		err = a.register(ctx, CLI.Register.Name, CLI.Register.Alias)
	case "submit <match-id> <winner> <loser>":
		err = a.submit(ctx, CLI.Submit.MatchID, CLI.Submit.Winner, CLI.Submit.Loser, CLI.Submit.Score)
	case "report <reference>":
		err = a.report(ctx, CLI.Report.Reference)
	case "standings":
		err = a.standings(ctx)
	case "history <player>":
		err = a.history(ctx, CLI.History.Player)
	case "stats <player>":
		err = a.stats(ctx, CLI.Stats.Player)
	case "verify":
		err = a.verify(ctx)
	default:
		err = fmt.Errorf("unknown command %q", kctx.Command())
	}
	if err != nil {
		closeFn()
		writeError(err)
	}
}

func newApp(logger zerolog.Logger) (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	config.LogSummary(cfg, logger)

	sqlDB, err := database.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	standingsCache := cache.New(cfg, logger)

	queries := db.New(sqlDB)
	playerRepo := repository.NewPlayerRepository(sqlDB, queries, logger)
	ledgerRepo := repository.NewLedgerRepository(sqlDB, queries, logger)

	ledger := service.NewLedgerService(ledgerRepo, playerRepo, standingsCache, cfg, logger)
	a := &app{
		players:   service.NewPlayerService(playerRepo, standingsCache, logger),
		ledger:    ledger,
		analytics: service.NewAnalyticsService(ledgerRepo, playerRepo, logger),
		reports:   service.NewReportService(api.NewResultsClient(cfg), playerRepo, ledger, logger),
		out:       os.Stdout,
	}

	closeFn := func() {
		standingsCache.Close()
		sqlDB.Close()
	}
	return a, closeFn, nil
}
