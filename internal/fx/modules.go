package fx

import (
	"rating-ledger/internal/api"
	"rating-ledger/internal/cache"
	"rating-ledger/internal/config"
	"rating-ledger/internal/database"
	"rating-ledger/internal/db"
	"rating-ledger/internal/logger"
	"rating-ledger/internal/repository"
	"rating-ledger/internal/server"
	"rating-ledger/internal/service"

	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sqlx.DB) *db.Queries {
	return db.New(sqlDB)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	fx.Provide(cache.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewLedgerRepository),
	// api client
	fx.Provide(api.NewResultsClient),
	// svc
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewLedgerService),
	fx.Provide(service.NewAnalyticsService),
	fx.Provide(service.NewReportService),
	// server
	fx.Provide(server.NewLedgerServer),
)
