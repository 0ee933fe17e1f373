package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"rating-ledger/internal/api"
	"rating-ledger/internal/constants"
	"rating-ledger/internal/domain"
	"rating-ledger/internal/middleware"
	"rating-ledger/internal/service"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const RatingLedgerPath = "/ledger.v1.RatingLedger/"

const (
	RegisterPlayerProcedure   = RatingLedgerPath + "RegisterPlayer"
	GetPlayerProcedure        = RatingLedgerPath + "GetPlayer"
	SubmitMatchProcedure      = RatingLedgerPath + "SubmitMatch"
	ReportMatchProcedure      = RatingLedgerPath + "ReportMatch"
	GetStandingsProcedure     = RatingLedgerPath + "GetStandings"
	GetPlayerStatsProcedure   = RatingLedgerPath + "GetPlayerStats"
	GetRatingHistoryProcedure = RatingLedgerPath + "GetRatingHistory"
	VerifyLedgerProcedure     = RatingLedgerPath + "VerifyLedger"
)

type LedgerServer struct {
	players   *service.PlayerService
	ledger    *service.LedgerService
	analytics *service.AnalyticsService
	reports   *service.ReportService
	db        *sqlx.DB
	logger    zerolog.Logger
}

func NewLedgerServer(
	players *service.PlayerService,
	ledger *service.LedgerService,
	analytics *service.AnalyticsService,
	reports *service.ReportService,
	db *sqlx.DB,
	logger zerolog.Logger,
) *LedgerServer {
	return &LedgerServer{
		players:   players,
		ledger:    ledger,
		analytics: analytics,
		reports:   reports,
		db:        db,
		logger:    logger,
	}
}

// Handler mounts every procedure plus the health check on a chi router.
func (s *LedgerServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(s.logger))

	opts := connect.WithCodec(jsonCodec{})
	r.Handle(RegisterPlayerProcedure, connect.NewUnaryHandler(RegisterPlayerProcedure, s.RegisterPlayer, opts))
	r.Handle(GetPlayerProcedure, connect.NewUnaryHandler(GetPlayerProcedure, s.GetPlayer, opts))
	r.Handle(SubmitMatchProcedure, connect.NewUnaryHandler(SubmitMatchProcedure, s.SubmitMatch, opts))
	r.Handle(ReportMatchProcedure, connect.NewUnaryHandler(ReportMatchProcedure, s.ReportMatch, opts))
	r.Handle(GetStandingsProcedure, connect.NewUnaryHandler(GetStandingsProcedure, s.GetStandings, opts))
	r.Handle(GetPlayerStatsProcedure, connect.NewUnaryHandler(GetPlayerStatsProcedure, s.GetPlayerStats, opts))
	r.Handle(GetRatingHistoryProcedure, connect.NewUnaryHandler(GetRatingHistoryProcedure, s.GetRatingHistory, opts))
	r.Handle(VerifyLedgerProcedure, connect.NewUnaryHandler(VerifyLedgerProcedure, s.VerifyLedger, opts))

	r.Get("/healthz", s.health)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (s *LedgerServer) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *LedgerServer) RegisterPlayer(ctx context.Context, req *connect.Request[RegisterPlayerRequest]) (*connect.Response[Player], error) {
	player, err := s.players.Register(ctx, req.Msg.DisplayName, req.Msg.ExternalAlias)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := toPlayer(player)
	return connect.NewResponse(&resp), nil
}

func (s *LedgerServer) GetPlayer(ctx context.Context, req *connect.Request[GetPlayerRequest]) (*connect.Response[Player], error) {
	var (
		player *domain.Player
		err    error
	)
	switch {
	case req.Msg.ID != "":
		player, err = s.players.Get(ctx, req.Msg.ID)
	case req.Msg.DisplayName != "":
		player, err = s.players.GetByDisplayName(ctx, req.Msg.DisplayName)
	default:
		err = fmt.Errorf("%w: id or display_name is required", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := toPlayer(player)
	return connect.NewResponse(&resp), nil
}

func (s *LedgerServer) SubmitMatch(ctx context.Context, req *connect.Request[SubmitMatchRequest]) (*connect.Response[CommitResponse], error) {
	res, err := s.ledger.Submit(ctx, domain.Candidate{
		MatchID:    req.Msg.MatchID,
		WinnerID:   req.Msg.WinnerID,
		LoserID:    req.Msg.LoserID,
		MarginData: req.Msg.Margin,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toCommitResponse(res)), nil
}

func (s *LedgerServer) ReportMatch(ctx context.Context, req *connect.Request[ReportMatchRequest]) (*connect.Response[CommitResponse], error) {
	res, err := s.reports.Report(ctx, req.Msg.Reference)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toCommitResponse(res)), nil
}

func (s *LedgerServer) GetStandings(ctx context.Context, _ *connect.Request[StandingsRequest]) (*connect.Response[StandingsResponse], error) {
	players, err := s.players.Standings(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &StandingsResponse{Players: make([]Player, 0, len(players))}
	for i := range players {
		resp.Players = append(resp.Players, toPlayer(&players[i]))
	}
	return connect.NewResponse(resp), nil
}

func (s *LedgerServer) GetPlayerStats(ctx context.Context, req *connect.Request[PlayerStatsRequest]) (*connect.Response[PlayerStatsResponse], error) {
	stats, err := s.analytics.Stats(ctx, req.Msg.PlayerID)
	if err != nil {
		return nil, toConnectError(err)
	}

	var trend strings.Builder
	for _, o := range stats.Trend {
		trend.WriteString(o.String())
	}

	return connect.NewResponse(&PlayerStatsResponse{
		Player:  toPlayer(&stats.Player),
		Trend:   trend.String(),
		Streak:  stats.Streak,
		WinRate: stats.WinRate,
		Wins:    stats.Wins,
		Losses:  stats.Losses,
		History: toHistoryPoints(stats.History),
	}), nil
}

func (s *LedgerServer) GetRatingHistory(ctx context.Context, req *connect.Request[RatingHistoryRequest]) (*connect.Response[RatingHistoryResponse], error) {
	history, err := s.analytics.RatingHistory(ctx, req.Msg.PlayerID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&RatingHistoryResponse{Points: toHistoryPoints(history)}), nil
}

func (s *LedgerServer) VerifyLedger(ctx context.Context, _ *connect.Request[VerifyLedgerRequest]) (*connect.Response[VerifyLedgerResponse], error) {
	drifts, err := s.analytics.Verify(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &VerifyLedgerResponse{Consistent: len(drifts) == 0, Drifts: make([]Drift, 0, len(drifts))}
	for _, d := range drifts {
		resp.Drifts = append(resp.Drifts, Drift(d))
	}
	return connect.NewResponse(resp), nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, domain.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, domain.ErrConflict):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, api.ErrNotConfigured):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, domain.ErrTransientStorage):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
