// Package app assembles the world core into a headless simulation driven by
// a fixed-rate tick loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeusync/worldstream/internal/config"
	"github.com/zeusync/worldstream/internal/core/activity"
	"github.com/zeusync/worldstream/internal/core/animation"
	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems"
	"github.com/zeusync/worldstream/internal/core/systems/physics"
	"github.com/zeusync/worldstream/internal/core/world"
)

var ErrNotBootstrapped = errors.New("app not bootstrapped")

// App owns the world and runs it one tick at a time: control, streaming,
// scene instancing, activity, animation, then physics.
type App struct {
	cfg    *config.Config
	logger log.Log

	registry  *assets.Registry
	graph     scene.Graph
	physics   physics.World
	bus       bus.EventBus
	streamer  *world.Streamer
	activity  *activity.Manager
	linker    *animation.Linker
	director  *animation.Director
	inbox     *Inbox
	runner    *systems.Runner
	control   *ControlSystem
	streaming *world.StreamingSystem
	instancer *SceneInstancer

	player scene.EntityID
}

// PhysicsSystem is a physics world that also steps itself as a system.
type PhysicsSystem interface {
	physics.World
	systems.System
}

func New(
	cfg *config.Config,
	logger log.Log,
	registry *assets.Registry,
	graph scene.Graph,
	phys PhysicsSystem,
	eventBus bus.EventBus,
	streamer *world.Streamer,
	manager *activity.Manager,
	linker *animation.Linker,
	director *animation.Director,
	inbox *Inbox,
) (*App, error) {
	a := &App{
		cfg:       cfg,
		logger:    logger.With(log.Component("app")),
		registry:  registry,
		graph:     graph,
		physics:   phys,
		bus:       eventBus,
		streamer:  streamer,
		activity:  manager,
		linker:    linker,
		director:  director,
		inbox:     inbox,
		runner:    systems.NewRunner(logger),
		streaming: world.NewStreamingSystem(streamer),
		instancer: NewSceneInstancer(graph, registry, logger),
	}
	a.control = NewControlSystem(inbox, a.runner, eventBus, logger)
	a.streaming.OnReport(a.onPassReport)
	eventBus.AddObserver(newEventTrace(logger))

	for _, s := range []systems.System{
		a.control,
		a.streaming,
		a.instancer,
		manager,
		linker,
		director,
		phys,
	} {
		if err := a.runner.Register(s); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *App) Runner() *systems.Runner { return a.runner }
func (a *App) Inbox() *Inbox            { return a.inbox }
func (a *App) Bus() bus.EventBus        { return a.bus }
func (a *App) Graph() scene.Graph       { return a.graph }
func (a *App) Player() scene.EntityID   { return a.player }
func (a *App) State() GameState         { return a.control.State() }

// Streaming exposes the streaming system for pass reports.
func (a *App) Streaming() *world.StreamingSystem { return a.streaming }

// Bootstrap preloads the asset catalog, then spawns the player and scatters
// spawners around it. Failed catalog assets are logged and tolerated.
func (a *App) Bootstrap(ctx context.Context) error {
	if len(a.cfg.Assets.Catalog) > 0 {
		res, err := a.registry.Preload(ctx, a.cfg.Assets.Catalog)
		switch {
		case errors.Is(err, assets.ErrAssetsFailed):
			for _, f := range res.Failed {
				a.logger.Warn("catalog asset failed", log.String("path", f.Path), log.Error(f.Err))
			}
		case err != nil:
			return fmt.Errorf("preload catalog: %w", err)
		default:
			a.logger.Info("catalog loaded", log.Int("assets", res.Tracked))
		}
	}

	player, err := a.streamer.SpawnPlayer()
	if err != nil {
		return err
	}
	a.player = player

	if path := a.cfg.Activity.MobScene; path != "" {
		ticket, err := a.registry.RequestDetached(assets.KindScene, path)
		if err != nil {
			return fmt.Errorf("request mob scene: %w", err)
		}
		a.activity.SetMobScene(ticket.Ref)
	}

	tr, err := a.graph.WorldTransform(player)
	if err != nil {
		return err
	}
	if _, err = a.activity.PlaceSpawners(tr.Translation); err != nil {
		a.logger.Warn("some spawners were not placed", log.Error(err))
	}

	state := InGame
	if a.cfg.Simulation.StartPaused {
		state = Paused
	}
	a.control.SetState(state)
	return nil
}

// Tick runs one frame of dt seconds. System failures are logged by the
// runner and returned joined; they never stop the loop.
func (a *App) Tick(ctx context.Context, dt float64) error {
	if !a.player.IsZero() && !a.graph.Alive(a.player) {
		a.player = scene.NoEntity
	}
	return a.runner.Tick(ctx, dt)
}

// Run ticks at the configured rate until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.player.IsZero() {
		return ErrNotBootstrapped
	}

	ticker := time.NewTicker(a.cfg.Simulation.TickRate)
	defer ticker.Stop()

	a.logger.Info("simulation started",
		log.Duration("tick_rate", a.cfg.Simulation.TickRate),
		log.String("state", a.State().String()),
	)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("simulation stopped", log.Uint64("ticks", a.runner.Ticks()))
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if dt > a.cfg.Simulation.MaxDelta {
				dt = a.cfg.Simulation.MaxDelta
			}
			if err := a.Tick(ctx, dt.Seconds()); err != nil && ctx.Err() == nil {
				a.logger.Debug("tick finished with errors", log.Error(err))
			}
		}
	}
}

func (a *App) onPassReport(r world.PassReport) {
	if err := r.Err(); err != nil {
		a.logger.Warn("streaming pass finished with errors",
			log.String("pass", r.ID),
			log.Int("failed", len(r.Failed)),
			log.Error(err),
		)
	}
}
