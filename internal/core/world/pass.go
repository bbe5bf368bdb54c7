package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/events"
	"github.com/zeusync/worldstream/internal/core/observability/log"
)

// PassReport summarizes one streaming pass.
type PassReport struct {
	ID          string
	Session     assets.Session
	Center      ChunkCoord
	Chunks      []ChunkCoord
	Skipped     int
	Decorations int
	// Failed lists assets of the pass that reached a failed state. The
	// entities referencing them are kept.
	Failed []assets.Failure
	// Errors holds per-entity build problems that did not stop the pass.
	Errors   []error
	Duration time.Duration
}

// Err joins asset failures and per-entity errors, or returns nil.
func (r PassReport) Err() error {
	errs := make([]error, 0, len(r.Failed)+len(r.Errors)+1)
	if len(r.Failed) > 0 {
		errs = append(errs, assets.ErrAssetsFailed)
		for _, f := range r.Failed {
			errs = append(errs, f)
		}
	}
	errs = append(errs, r.Errors...)
	return errors.Join(errs...)
}

// Pass is a streaming pass whose entities exist and whose assets may still
// be loading.
type Pass struct {
	streamer *Streamer
	session  assets.Session
	started  time.Time
	// deadline bounds Poll like WaitTimeout bounds Wait; zero means none.
	deadline time.Time

	mu     sync.Mutex
	report PassReport
	done   bool
	err    error
}

func (p *Pass) Session() assets.Session { return p.session }

// Poll checks the session once without blocking and completes the pass when
// nothing is pending. Past the deadline the pass aborts with ErrWaitTimeout.
func (p *Pass) Poll() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return true, p.err
	}

	res, done, err := p.streamer.registry.Poll(p.session)
	if err != nil {
		p.abortLocked(err)
		return true, err
	}
	if !done {
		if p.deadline.IsZero() || time.Now().Before(p.deadline) {
			return false, nil
		}
		err = fmt.Errorf("%w: session %d has %d pending", assets.ErrWaitTimeout, p.session, res.Pending)
		p.abortLocked(err)
		return true, err
	}
	p.completeLocked(res)
	return true, nil
}

// Wait suspends until the pass's assets are terminal. Asset failures are in
// the report, not the error; timeouts and cancellation abort the pass.
func (p *Pass) Wait(ctx context.Context) (PassReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return p.report, p.err
	}

	res, err := p.streamer.registry.WaitReady(ctx, p.session)
	if err != nil && !errors.Is(err, assets.ErrAssetsFailed) {
		p.abortLocked(err)
		return p.report, err
	}
	p.completeLocked(res)
	return p.report, nil
}

func (p *Pass) Report() PassReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

func (p *Pass) completeLocked(res assets.SessionResult) {
	s := p.streamer
	p.done = true
	p.report.Failed = res.Failed
	p.report.Duration = time.Since(p.started)
	s.finish(p)
	_ = s.registry.Release(p.session)

	if len(res.Failed) > 0 {
		paths := make([]string, len(res.Failed))
		for i, f := range res.Failed {
			paths[i] = f.Path
		}
		s.logger.Warn("streaming pass has failed assets",
			log.String("pass", p.report.ID),
			log.Int("failed", len(paths)),
		)
		_ = events.Publish(s.bus, events.TypeAssetsFailed, events.SourceStreamer, events.AssetsFailed{
			PassID:  p.report.ID,
			Session: uint32(p.session),
			Paths:   paths,
		})
	}

	_ = events.Publish(s.bus, events.TypePassFinished, events.SourceStreamer, events.PassFinished{
		PassID:      p.report.ID,
		Session:     uint32(p.session),
		Chunks:      len(p.report.Chunks),
		Decorations: p.report.Decorations,
		Failed:      len(res.Failed),
		Seconds:     p.report.Duration.Seconds(),
	})

	s.logger.Info("streaming pass ready",
		log.String("pass", p.report.ID),
		log.String("center", p.report.Center.String()),
		log.Int("chunks", len(p.report.Chunks)),
		log.Duration("took", p.report.Duration),
	)
}

// abortLocked releases the streamer for a new pass. Chunks already built stay
// built; their assets keep loading under the abandoned session.
func (p *Pass) abortLocked(err error) {
	p.done = true
	p.err = err
	p.report.Duration = time.Since(p.started)
	p.report.Errors = append(p.report.Errors, err)
	p.streamer.finish(p)
	_ = p.streamer.registry.Release(p.session)
	p.streamer.logger.Error("streaming pass aborted",
		log.String("pass", p.report.ID),
		log.Error(err),
	)
}
