package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"latemate_console/internal/logger"
	"latemate_console/internal/models"
	"latemate_console/internal/repository"
)

// Sweep defaults: 25Hz ticks sample the 50Hz telemetry twice per band.
const (
	DefaultSweepStep      = 40
	DefaultSweepTick      = 40 * time.Millisecond
	DefaultSweepThreshold = 0.1
)

var ErrSweepRunning = errors.New("calibration sweep already running")

type SweepConfig struct {
	Step      int
	Tick      time.Duration
	Threshold float64
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Step <= 0 {
		c.Step = DefaultSweepStep
	}
	if c.Tick <= 0 {
		c.Tick = DefaultSweepTick
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultSweepThreshold
	}
	return c
}

// LightSource reports the latest background light level, 0..1. The sweep
// starts it so the level it compares is live telemetry.
type LightSource interface {
	StartMonitoring(ctx context.Context) error
	LastLightLevel() float64
}

// CalibrationSweep moves a white band across a black surface, first along X
// and then along Y, until the sensor sees it.
type CalibrationSweep struct {
	surface Surface
	light   LightSource
	display Display
	repo    repository.CalibrationRepo
	cfg     SweepConfig
	log     *logger.Logger
	now     func() time.Time

	// newTicker is swapped in tests to drive ticks by hand.
	newTicker func(d time.Duration) (<-chan time.Time, func())

	mu     sync.Mutex
	gen    int
	phase  models.SweepPhase
	state  *models.SweepState
	foundX int
	failed models.Axis
	result *models.CalibrationResult
	cancel context.CancelFunc
	done   chan struct{}
}

func NewCalibrationSweep(surface Surface, light LightSource, display Display, repo repository.CalibrationRepo, cfg SweepConfig, log *logger.Logger) *CalibrationSweep {
	return &CalibrationSweep{
		surface:   surface,
		light:     light,
		display:   display,
		repo:      repo,
		cfg:       cfg.withDefaults(),
		log:       logger.OrNop(log).Named("calibration"),
		now:       time.Now,
		newTicker: realTicker,
		phase:     models.PhaseIdle,
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func sweeping(p models.SweepPhase) bool {
	return p == models.PhaseSweepX || p == models.PhaseSweepY
}

// Find starts a sweep from IDLE or a finished one. It fails without painting
// when the light level stream cannot be started.
func (s *CalibrationSweep) Find(ctx context.Context) error {
	s.mu.Lock()
	running := sweeping(s.phase)
	s.mu.Unlock()
	if running {
		return ErrSweepRunning
	}
	if err := s.light.StartMonitoring(ctx); err != nil {
		s.log.Warnw("sweep_monitoring_failed", "err", err)
		return err
	}

	s.mu.Lock()
	if sweeping(s.phase) {
		s.mu.Unlock()
		return ErrSweepRunning
	}
	s.gen++
	gen := s.gen
	s.phase = models.PhaseSweepX
	s.failed = ""
	s.foundX = 0
	s.state = &models.SweepState{Axis: models.AxisX, Step: s.cfg.Step}
	s.paintBaseline()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	view := s.viewLocked()
	s.mu.Unlock()

	s.display.ShowCalibration(view)
	s.log.Infow("sweep_started", "step", s.cfg.Step, "tick", s.cfg.Tick, "threshold", s.cfg.Threshold)

	go s.run(runCtx, gen, done)
	return nil
}

func (s *CalibrationSweep) run(ctx context.Context, gen int, done chan struct{}) {
	defer close(done)
	ticks, stop := s.newTicker(s.cfg.Tick)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if !s.tick(ctx, gen) {
				return
			}
		}
	}
}

// tick runs one feedback step and reports whether the sweep goes on.
func (s *CalibrationSweep) tick(ctx context.Context, gen int) bool {
	s.mu.Lock()
	if gen != s.gen || !sweeping(s.phase) {
		s.mu.Unlock()
		return false
	}
	st := s.state

	// the sample in flight was taken before the last repaint
	if st.CooldownArmed {
		st.CooldownArmed = false
		s.mu.Unlock()
		return true
	}

	level := s.light.LastLightLevel()
	if level > s.cfg.Threshold {
		return s.crossedLocked(ctx, level)
	}

	width, height := s.surface.Size()
	limit := width
	if st.Axis == models.AxisY {
		limit = height
	}
	if st.Position >= limit {
		s.phase = models.PhaseNotFound
		s.failed = st.Axis
		s.state = nil
		s.releaseLocked()
		view := s.viewLocked()
		s.mu.Unlock()
		s.log.Warnw("sweep_not_found", "axis", st.Axis, "limit", limit)
		s.display.ShowCalibration(view)
		return false
	}

	st.Position += st.Step
	s.paintBand(st, width, height)
	st.CooldownArmed = true
	s.mu.Unlock()
	return true
}

// crossedLocked is entered with mu held and releases it.
func (s *CalibrationSweep) crossedLocked(ctx context.Context, level float64) bool {
	st := s.state
	s.log.Infow("sweep_crossed", "axis", st.Axis, "position", st.Position, "level", level)

	if st.Axis == models.AxisX {
		s.foundX = st.Position
		s.phase = models.PhaseSweepY
		s.state = &models.SweepState{Axis: models.AxisY, Step: s.cfg.Step}
		s.paintBaseline()
		view := s.viewLocked()
		s.mu.Unlock()
		s.display.ShowCalibration(view)
		return true
	}

	width, height := s.surface.Size()
	res := &models.CalibrationResult{
		X:       s.foundX,
		Y:       st.Position,
		Width:   width,
		Height:  height,
		FoundAt: s.now().UTC(),
	}
	s.phase = models.PhaseFound
	s.state = nil
	s.result = res
	s.releaseLocked()
	s.surface.Fill(models.Black)
	s.surface.Marker(res.X, res.Y)
	view := s.viewLocked()
	s.mu.Unlock()

	s.display.ShowCalibration(view)
	if s.repo != nil {
		if err := s.repo.Save(ctx, *res); err != nil {
			s.log.Errorw("calibration_persist_failed", "err", err)
		}
	}
	return false
}

// releaseLocked stops the ticker goroutine of a run that ended on its own.
func (s *CalibrationSweep) releaseLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel, s.done = nil, nil
}

// paintBaseline blacks out the surface and arms the cooldown. mu must be held.
func (s *CalibrationSweep) paintBaseline() {
	s.surface.Fill(models.Black)
	s.state.CooldownArmed = true
}

// paintBand draws the band just behind the boundary white and the one
// before it black. mu must be held.
func (s *CalibrationSweep) paintBand(st *models.SweepState, width, height int) {
	lead := st.Position - st.Step
	trail := lead - st.Step
	switch st.Axis {
	case models.AxisX:
		if trail >= 0 {
			s.surface.FillRect(models.Rect{X: trail, Y: 0, Width: st.Step, Height: height}, models.Black)
		}
		s.surface.FillRect(models.Rect{X: lead, Y: 0, Width: clampSpan(lead, st.Step, width), Height: height}, models.White)
	case models.AxisY:
		if trail >= 0 {
			s.surface.FillRect(models.Rect{X: 0, Y: trail, Width: width, Height: st.Step}, models.Black)
		}
		s.surface.FillRect(models.Rect{X: 0, Y: lead, Width: width, Height: clampSpan(lead, st.Step, height)}, models.White)
	}
}

func clampSpan(start, span, limit int) int {
	if start+span > limit {
		return max(limit-start, 0)
	}
	return span
}

// CancelSweep stops a running sweep and returns to IDLE.
func (s *CalibrationSweep) CancelSweep() bool {
	s.mu.Lock()
	if !sweeping(s.phase) {
		s.mu.Unlock()
		return false
	}
	s.gen++
	s.phase = models.PhaseIdle
	s.state = nil
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	view := s.viewLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.display.ShowCalibration(view)
	s.log.Infow("sweep_cancelled")
	return true
}

// CalibrationView returns the current phase and the last known result,
// falling back to the persisted one.
func (s *CalibrationSweep) CalibrationView(ctx context.Context) (models.CalibrationView, error) {
	s.mu.Lock()
	view := s.viewLocked()
	s.mu.Unlock()

	if view.Result == nil && s.repo != nil {
		res, err := s.repo.Load(ctx)
		if err != nil {
			return view, err
		}
		view.Result = res
	}
	return view, nil
}

func (s *CalibrationSweep) viewLocked() models.CalibrationView {
	v := models.CalibrationView{Phase: s.phase, Failed: s.failed}
	if s.state != nil {
		st := *s.state
		v.State = &st
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	return v
}
