//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package app

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/l1jgo/engine/internal/config"
)

var ProviderSet = wire.NewSet(
	ProvideRegistry,
	ProvideWorld,
	ProvideBus,
	ProvideScheduler,
	ProvideScripts,
	ProvideDB,
	ProvideSnapshotStore,
	ProvideInspector,
	ProvideWatcher,
	NewEngine,
)

func InitializeEngine(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Engine, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
