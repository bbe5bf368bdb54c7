package world

import (
	"context"

	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems"
)

const keptReports = 32

// StreamingSystem starts a pass whenever the player enters a new chunk and
// polls the pass from the tick loop instead of blocking it.
type StreamingSystem struct {
	streamer *Streamer
	pass     *Pass
	last     ChunkCoord
	started  bool
	reports  []PassReport
	onReport func(PassReport)

	playerWatch scene.PlayerWatch
}

var _ systems.System = (*StreamingSystem)(nil)

func NewStreamingSystem(streamer *Streamer) *StreamingSystem {
	return &StreamingSystem{streamer: streamer}
}

// OnReport registers a callback for every completed pass.
func (s *StreamingSystem) OnReport(fn func(PassReport)) { s.onReport = fn }

func (s *StreamingSystem) Name() string                  { return "world.streaming" }
func (s *StreamingSystem) Phase() systems.ExecutionPhase { return systems.PhasePreUpdate }
func (s *StreamingSystem) Priority() systems.Priority    { return systems.PriorityHigh }

func (s *StreamingSystem) Update(_ context.Context, _ float64) error {
	if s.pass != nil {
		done, err := s.pass.Poll()
		if !done {
			return nil
		}
		s.complete(s.pass.Report())
		s.pass = nil
		if err != nil {
			return err
		}
	}

	_, player, err := scene.FindPlayer(s.streamer.graph)
	// A missing player is returned once, not on every tick.
	if report, _ := s.playerWatch.Observe(err); err != nil {
		return report
	}
	coord := ChunkCoordOf(player.Translation, s.streamer.cfg.ChunkSize)
	if s.started && coord == s.last {
		return nil
	}

	pass, err := s.streamer.Begin(player.Translation)
	if err != nil {
		return err
	}
	s.pass = pass
	s.last = coord
	s.started = true
	return nil
}

// Reports returns the most recent completed pass reports, oldest first.
func (s *StreamingSystem) Reports() []PassReport {
	out := make([]PassReport, len(s.reports))
	copy(out, s.reports)
	return out
}

func (s *StreamingSystem) complete(r PassReport) {
	s.reports = append(s.reports, r)
	if len(s.reports) > keptReports {
		s.reports = s.reports[len(s.reports)-keptReports:]
	}
	if s.onReport != nil {
		s.onReport(r)
	}
}
