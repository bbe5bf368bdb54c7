package injector

import (
	"context"
	"os"

	"github.com/google/wire"

	"github.com/zeusync/worldstream/internal/app"
	"github.com/zeusync/worldstream/internal/config"
	"github.com/zeusync/worldstream/internal/core/activity"
	"github.com/zeusync/worldstream/internal/core/animation"
	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems/physics"
	"github.com/zeusync/worldstream/internal/core/world"
	"github.com/zeusync/worldstream/internal/server"
)

// Runtime is everything cmd/worldsim needs to run.
type Runtime struct {
	App    *app.App
	Server *server.ControlServer
	Logger *log.Logger
}

var CoreSet = wire.NewSet(
	ProvideFileLoader,
	wire.Bind(new(assets.Loader), new(*assets.FileLoader)),
	ProvideRegistry,
	wire.Bind(new(animation.ClipIndex), new(*assets.Registry)),
	scene.NewWorld,
	wire.Bind(new(scene.Graph), new(*scene.World)),
	physics.NewSimpleWorld,
	wire.Bind(new(physics.World), new(*physics.SimpleWorld)),
	wire.Bind(new(app.PhysicsSystem), new(*physics.SimpleWorld)),
	bus.New,
	ProvideStreamer,
	ProvideActivity,
	animation.NewLinker,
	animation.NewTypes,
	animation.NewMemoryPlayback,
	wire.Bind(new(animation.Playback), new(*animation.MemoryPlayback)),
	ProvideDirector,
)

var AppSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	CoreSet,
	ProvideInbox,
	app.New,
	ProvideControlServer,
	wire.Bind(new(server.Inbox), new(*app.Inbox)),
	wire.Struct(new(Runtime), "*"),
)

// ProvideLogger builds the zap logger from the logging section and flushes
// it on cleanup.
func ProvideLogger(cfg *config.Config) (*log.Logger, func(), error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.New(level, log.Format(cfg.Logging.Format))
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideFileLoader reads assets below cfg.Assets.Root.
func ProvideFileLoader(ctx context.Context, cfg *config.Config, logger log.Log) (*assets.FileLoader, func()) {
	l := assets.NewFileLoader(ctx, os.DirFS(cfg.Assets.Root), cfg.Assets.Workers, cfg.Assets.Queue, logger)
	return l, func() {
		if err := l.Close(); err != nil {
			logger.Warn("file loader close", log.Error(err))
		}
	}
}

func ProvideRegistry(loader assets.Loader, cfg *config.Config, logger log.Log) *assets.Registry {
	return assets.NewRegistry(loader, cfg.Assets.Options(), logger)
}

// ProvideStreamer seeds decoration from cfg.World.Seed.
func ProvideStreamer(
	cfg *config.Config,
	registry *assets.Registry,
	graph scene.Graph,
	phys physics.World,
	eventBus bus.EventBus,
	logger log.Log,
) (*world.Streamer, error) {
	return world.NewStreamer(cfg.World, registry, graph, phys, eventBus, logger, nil)
}

func ProvideActivity(
	cfg *config.Config,
	graph scene.Graph,
	phys physics.World,
	eventBus bus.EventBus,
	logger log.Log,
) (*activity.Manager, error) {
	return activity.NewManager(cfg.Activity, graph, phys, eventBus, logger, nil)
}

func ProvideDirector(
	cfg *config.Config,
	graph scene.Graph,
	linker *animation.Linker,
	types *animation.Types,
	clips animation.ClipIndex,
	playback animation.Playback,
	eventBus bus.EventBus,
	logger log.Log,
) (*animation.Director, error) {
	return animation.NewDirector(cfg.Animation, graph, linker, types, clips, playback, eventBus, logger)
}

func ProvideInbox(cfg *config.Config) *app.Inbox {
	return app.NewInbox(cfg.Control.InboxSize)
}

func ProvideControlServer(cfg *config.Config, inbox server.Inbox, eventBus bus.EventBus, logger log.Log) *server.ControlServer {
	return server.NewControlServer(cfg.Control, inbox, eventBus, logger)
}
