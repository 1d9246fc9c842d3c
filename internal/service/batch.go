package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"latemate_console/internal/logger"
	"latemate_console/internal/models"

	"github.com/google/uuid"
)

var ErrInvalidBatch = errors.New("invalid batch: count must be positive and interval non-negative")

// RepeatBatchController fires one scenario count times, interval apart,
// through the session. Pacing is wall-clock: a dispatch that finds the
// previous one still in flight is skipped, never queued.
type RepeatBatchController struct {
	session *MeasurementSession
	log     *logger.Logger

	mu     sync.Mutex
	state  *models.BatchState
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRepeatBatchController(session *MeasurementSession, log *logger.Logger) *RepeatBatchController {
	return &RepeatBatchController{
		session: session,
		log:     logger.OrNop(log).Named("batch"),
	}
}

// StartBatch begins a batch. It returns false without doing anything when a
// dispatch or another batch holds the in-flight slot.
func (b *RepeatBatchController) StartBatch(ctx context.Context, sc *models.Scenario, count int, interval time.Duration) (bool, error) {
	if sc == nil {
		return false, nil
	}
	if err := sc.Validate(); err != nil {
		return false, err
	}
	if count <= 0 || interval < 0 {
		return false, ErrInvalidBatch
	}

	if !b.session.acquireBatch() {
		b.log.Debugw("batch_skipped_busy")
		return false, nil
	}

	// the batch outlives the request that started it
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	state := &models.BatchState{
		ID:         uuid.NewString(),
		Scenario:   *sc,
		Remaining:  count,
		IntervalMS: interval.Milliseconds(),
	}
	done := make(chan struct{})

	b.mu.Lock()
	b.state = state
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()

	b.log.Infow("batch_started", "id", state.ID, "count", count, "interval_ms", state.IntervalMS)
	go b.run(runCtx, state, *sc, interval, done)
	return true, nil
}

func (b *RepeatBatchController) run(ctx context.Context, state *models.BatchState, sc models.Scenario, interval time.Duration, done chan struct{}) {
	defer close(done)
	defer b.finish(state)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		sent, err := b.session.dispatch(ctx, &sc, true)
		switch {
		case err != nil:
			b.log.Warnw("batch_dispatch_failed", "id", state.ID, "err", err)
		case !sent:
			b.log.Debugw("batch_dispatch_skipped", "id", state.ID)
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		b.mu.Lock()
		state.Remaining--
		stop := state.Remaining <= 0 || state.Cancelled
		b.mu.Unlock()
		if stop {
			return
		}
	}
}

func (b *RepeatBatchController) finish(state *models.BatchState) {
	b.mu.Lock()
	if b.state == state {
		b.state = nil
		b.cancel = nil
	}
	cancelled := state.Cancelled
	remaining := state.Remaining
	b.mu.Unlock()

	b.session.releaseBatch()
	b.log.Infow("batch_finished", "id", state.ID, "cancelled", cancelled, "remaining", remaining)
}

// CancelBatch stops scheduling once the pending wait elapses. A dispatch
// already sent is not recalled.
func (b *RepeatBatchController) CancelBatch() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == nil {
		return false
	}
	b.state.Cancelled = true
	return true
}

// StopBatch tears the batch down at once and waits for its timer goroutine.
func (b *RepeatBatchController) StopBatch() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// BatchState returns a copy of the running batch, or nil.
func (b *RepeatBatchController) BatchState() *models.BatchState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == nil {
		return nil
	}
	cp := *b.state
	return &cp
}
