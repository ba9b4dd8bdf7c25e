package fx

import (
	"customs-league/internal/config"
	"customs-league/internal/database"
	"customs-league/internal/ingest"
	"customs-league/internal/logger"
	"customs-league/internal/repository"
	"customs-league/internal/server"
	"customs-league/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewStatsRepository),
	fx.Provide(repository.NewEloRepository),
	fx.Provide(repository.NewWeightRepository),
	// extractor client
	fx.Provide(ingest.NewClient),
	// svc
	fx.Provide(service.NewMatchLocks),
	fx.Provide(service.NewMatchService),
	fx.Provide(service.NewStatsService),
	fx.Provide(service.NewRatingService),
	// server
	fx.Provide(server.NewServer),
)
