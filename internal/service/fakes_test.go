package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"latemate_console/internal/models"
)

// fakeTransport records every send and lets tests push inbound messages.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []any
	sendErr error
	open    bool
	sentAt  []time.Time

	// onSend runs after a successful send, outside the lock.
	onSend func(msg any)

	msgFns   []func(models.Inbound)
	openFns  []func()
	closeFns []func(error)
}

func newFakeTransport() *fakeTransport { return &fakeTransport{open: true} }

func (f *fakeTransport) Send(_ context.Context, msg any) error {
	f.mu.Lock()
	if f.sendErr != nil {
		f.mu.Unlock()
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	f.sentAt = append(f.sentAt, time.Now())
	hook := f.onSend
	f.mu.Unlock()
	if hook != nil {
		hook(msg)
	}
	return nil
}

func (f *fakeTransport) sendTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.sentAt...)
}

func (f *fakeTransport) Subscribe(fn func(models.Inbound)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgFns = append(f.msgFns, fn)
}

func (f *fakeTransport) SubscribeToOpen(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openFns = append(f.openFns, fn)
}

func (f *fakeTransport) SubscribeToClose(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeFns = append(f.closeFns, fn)
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) deliver(msg models.Inbound) {
	f.mu.Lock()
	fns := append([]func(models.Inbound){}, f.msgFns...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(msg)
	}
}

func (f *fakeTransport) reopen() {
	f.mu.Lock()
	f.open = true
	fns := append([]func(){}, f.openFns...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// drop closes the channel the way a lost connection does.
func (f *fakeTransport) drop(err error) {
	f.mu.Lock()
	f.open = false
	fns := append([]func(error){}, f.closeFns...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (f *fakeTransport) sends() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.sent...)
}

func (f *fakeTransport) countType(typ string) int {
	n := 0
	for _, m := range f.sends() {
		switch v := m.(type) {
		case models.MeasureRequest:
			if v.Type == typ {
				n++
			}
		case models.Command:
			if v.Type == typ {
				n++
			}
		case models.SendHIDReport:
			if v.Type == typ {
				n++
			}
		}
	}
	return n
}

// fakeDisplay keeps the last view of each kind.
type fakeDisplay struct {
	mu           sync.Mutex
	measurements []models.MeasurementView
	scatter      []models.ScatterView
	background   [][]float64
	status       []models.StatusView
	calibration  []models.CalibrationView
}

func (d *fakeDisplay) ShowMeasurement(v models.MeasurementView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.measurements = append(d.measurements, v)
}

func (d *fakeDisplay) ShowScatter(v models.ScatterView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scatter = append(d.scatter, v)
}

func (d *fakeDisplay) ShowBackground(p []float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.background = append(d.background, p)
}

func (d *fakeDisplay) ShowStatus(v models.StatusView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = append(d.status, v)
}

func (d *fakeDisplay) ShowCalibration(v models.CalibrationView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calibration = append(d.calibration, v)
}

func (d *fakeDisplay) lastScatter() models.ScatterView {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.scatter) == 0 {
		return models.ScatterView{}
	}
	return d.scatter[len(d.scatter)-1]
}

func (d *fakeDisplay) lastMeasurement() models.MeasurementView {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.measurements) == 0 {
		return models.MeasurementView{}
	}
	return d.measurements[len(d.measurements)-1]
}

type fakeArchiver struct {
	points []models.ScatterPoint
	err    error
}

func (a *fakeArchiver) ArchiveScatter(_ context.Context, points []models.ScatterPoint, _ int) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.points = points
	return "archive/scatter.png", nil
}

type fakeMeasurementRepo struct {
	mu      sync.Mutex
	records []models.MeasurementRecord
	err     error

	gotFrom, gotTo time.Time
	gotKey         string
}

func (r *fakeMeasurementRepo) Append(_ context.Context, rec models.MeasurementRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return r.err
}

func (r *fakeMeasurementRepo) List(_ context.Context, from, to time.Time, key string) ([]models.MeasurementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gotFrom, r.gotTo, r.gotKey = from, to, key
	return r.records, r.err
}

type fakeCalibrationRepo struct {
	saved  []models.CalibrationResult
	stored *models.CalibrationResult
	err    error
}

func (r *fakeCalibrationRepo) Save(_ context.Context, res models.CalibrationResult) error {
	r.saved = append(r.saved, res)
	return r.err
}

func (r *fakeCalibrationRepo) Load(context.Context) (*models.CalibrationResult, error) {
	return r.stored, r.err
}

type fakeDiscoverer struct {
	ports []models.PortInfo
	err   error
}

func (d fakeDiscoverer) Discover() ([]models.PortInfo, error) { return d.ports, d.err }

var errDown = errors.New("device channel is closed")

func keyboard(keys ...string) models.InputReport {
	return models.InputReport{Type: models.ReportKeyboard, PressedKeys: keys}
}

// typeA is the keyboard scenario used throughout the tests.
func typeA() *models.Scenario {
	return &models.Scenario{
		DurationMS: 300,
		Before:     []models.InputReport{},
		Start:      keyboard("a"),
		Followup:   &models.Followup{AfterMS: 1, Report: keyboard()},
		After:      []models.InputReport{keyboard("backspace"), keyboard()},
	}
}

func u32(v uint32) *uint32 { return &v }
