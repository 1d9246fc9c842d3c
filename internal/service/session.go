package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"latemate_console/internal/logger"
	"latemate_console/internal/models"
	"latemate_console/internal/repository"

	"github.com/google/uuid"
)

// goldenJitter spreads consecutive scatter points over [0,1) without repeats.
const goldenJitter = 0.6180339887498949

var (
	ErrNothingToArchive = errors.New("no change points to archive")
	errArchiveDisabled  = errors.New("archiving is not configured")
)

// ArchiveResult describes an archived scatter history.
type ArchiveResult struct {
	Path  string              `json:"path"`
	Stats models.LatencyStats `json:"stats"`
}

// MeasurementSession dispatches one scenario at a time and turns the replies
// into display series. It trusts the transport's ordering: with a single
// dispatch in flight, the next measurement belongs to it.
type MeasurementSession struct {
	transport Transport
	display   Display
	archiver  Archiver
	records   repository.MeasurementRepo
	log       *logger.Logger
	now       func() time.Time

	mu          sync.Mutex
	inFlight    bool
	batchActive bool
	lastKey     string
	scenarioNew bool
	durationMS  int
	history     []models.ScatterPoint
	outcomes    []*float64
	jitterSeq   int
}

func NewMeasurementSession(t Transport, d Display, a Archiver, records repository.MeasurementRepo, log *logger.Logger) *MeasurementSession {
	s := &MeasurementSession{
		transport: t,
		display:   d,
		archiver:  a,
		records:   records,
		log:       logger.OrNop(log).Named("session"),
		now:       time.Now,
	}
	t.Subscribe(func(msg models.Inbound) {
		if m, ok := msg.(*models.Measurement); ok {
			s.OnResult(context.Background(), m.Result())
		}
	})
	t.SubscribeToClose(s.onClose)
	return s
}

// onClose frees the in-flight slot: a reply to a request sent on a dropped
// connection never arrives.
func (s *MeasurementSession) onClose(err error) {
	s.mu.Lock()
	abandoned := s.inFlight
	s.inFlight = false
	s.mu.Unlock()
	if abandoned {
		s.log.Warnw("measure_abandoned_on_close", "err", err)
	}
}

// Dispatch sends the scenario unless a dispatch or batch already holds the
// in-flight slot. It returns false without sending when busy or sc is nil.
func (s *MeasurementSession) Dispatch(ctx context.Context, sc *models.Scenario) (bool, error) {
	return s.dispatch(ctx, sc, false)
}

func (s *MeasurementSession) dispatch(ctx context.Context, sc *models.Scenario, fromBatch bool) (bool, error) {
	if sc == nil {
		return false, nil
	}
	if err := sc.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.inFlight || (s.batchActive && !fromBatch) {
		s.mu.Unlock()
		s.log.Debugw("measure_skipped_busy", "from_batch", fromBatch)
		return false, nil
	}
	if key := sc.Key(); key != s.lastKey {
		s.scenarioNew = true
		s.lastKey = key
		s.durationMS = sc.DurationMS
	}
	s.inFlight = true
	s.mu.Unlock()

	if err := s.transport.Send(ctx, models.NewMeasureRequest(*sc)); err != nil {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
		s.log.Errorw("measure_send_failed", "err", err)
		return false, err
	}
	s.log.Infow("measure_dispatched", "duration_ms", sc.DurationMS, "from_batch", fromBatch)
	return true, nil
}

// OnResult consumes the reply to the in-flight dispatch. A reply with nothing
// in flight is logged and dropped.
func (s *MeasurementSession) OnResult(ctx context.Context, res models.MeasurementResult) {
	s.mu.Lock()
	if !s.inFlight {
		s.mu.Unlock()
		s.log.Warnw("stray_measurement", "samples", len(res.Series))
		return
	}
	s.inFlight = false

	if s.scenarioNew {
		s.scenarioNew = false
		s.history = nil
		s.outcomes = nil
		s.jitterSeq = 0
	}

	change := res.ChangeMS()
	s.outcomes = append(s.outcomes, change)
	if change != nil {
		s.history = append(s.history, models.ScatterPoint{DelayMS: *change, Jitter: s.nextJitter()})
	}

	view := models.MeasurementView{
		Series:     res.Normalize(),
		ChangeMS:   change,
		DurationMS: s.durationMS,
	}
	scatter := models.ScatterView{
		Points:     append([]models.ScatterPoint(nil), s.history...),
		DurationMS: s.durationMS,
	}
	rec := models.MeasurementRecord{
		ID:            uuid.NewString(),
		RecordedAt:    s.now().UTC(),
		ScenarioKey:   s.lastKey,
		DurationMS:    s.durationMS,
		MaxLightLevel: res.MaxLightLevel,
		ChangeUS:      res.Change,
		Series:        res.Series,
	}
	s.mu.Unlock()

	s.display.ShowMeasurement(view)
	s.display.ShowScatter(scatter)

	if s.records != nil {
		if err := s.records.Append(ctx, rec); err != nil {
			s.log.Errorw("measurement_persist_failed", "err", err, "id", rec.ID)
		}
	}
}

// nextJitter must be called with mu held.
func (s *MeasurementSession) nextJitter() float64 {
	s.jitterSeq++
	_, frac := math.Modf(float64(s.jitterSeq) * goldenJitter)
	return frac
}

// InFlight reports whether a dispatch awaits its reply.
func (s *MeasurementSession) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Stats summarizes the outcomes recorded since the scenario last changed.
func (s *MeasurementSession) Stats() models.LatencyStats {
	s.mu.Lock()
	outcomes := append([]*float64(nil), s.outcomes...)
	s.mu.Unlock()
	return SummarizeLatencies(outcomes)
}

// Archive writes the scatter history out and clears the displayed charts.
func (s *MeasurementSession) Archive(ctx context.Context) (ArchiveResult, error) {
	s.mu.Lock()
	points := append([]models.ScatterPoint(nil), s.history...)
	outcomes := append([]*float64(nil), s.outcomes...)
	duration := s.durationMS
	s.mu.Unlock()

	if s.archiver == nil {
		return ArchiveResult{}, errArchiveDisabled
	}
	if len(points) == 0 {
		return ArchiveResult{}, ErrNothingToArchive
	}
	path, err := s.archiver.ArchiveScatter(ctx, points, duration)
	if err != nil {
		return ArchiveResult{}, err
	}

	s.mu.Lock()
	s.history = nil
	s.outcomes = nil
	s.jitterSeq = 0
	s.mu.Unlock()

	s.display.ShowMeasurement(models.MeasurementView{Series: []models.SeriesPoint{}, DurationMS: duration})
	s.display.ShowScatter(models.ScatterView{Points: []models.ScatterPoint{}, DurationMS: duration})
	s.log.Infow("scatter_archived", "path", path, "points", len(points))

	return ArchiveResult{Path: path, Stats: SummarizeLatencies(outcomes)}, nil
}

// acquireBatch takes the batch slot when nothing is in flight.
func (s *MeasurementSession) acquireBatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight || s.batchActive {
		return false
	}
	s.batchActive = true
	return true
}

func (s *MeasurementSession) releaseBatch() {
	s.mu.Lock()
	s.batchActive = false
	s.mu.Unlock()
}
