//go:build wireinject
// +build wireinject

package di

import (
	"StockWatch/pkg/config"
	"StockWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKVStore,
		ProvideLogger,
		ProvideMetrics,

		// Upstream sources
		ProvideMarketData,
		ProvideWatchlist,
		ProvideNews,

		// Snapshot pipeline
		ProvideSnapshotCache,
		ProvidePublisher,
		ProvideRefresher,

		// HTTP surface
		ProvideStream,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
