package service

import (
	"context"
	"time"

	"latemate_console/internal/logger"
	"latemate_console/internal/models"
	"latemate_console/internal/repository"
)

// Transport is the device message channel.
type Transport interface {
	Send(ctx context.Context, msg any) error
	Subscribe(fn func(models.Inbound))
	SubscribeToOpen(fn func())
	SubscribeToClose(fn func(error))
	IsOpen() bool
}

// Display receives finished views and redraws.
type Display interface {
	ShowMeasurement(v models.MeasurementView)
	ShowScatter(v models.ScatterView)
	ShowBackground(percent []float64)
	ShowStatus(v models.StatusView)
	ShowCalibration(v models.CalibrationView)
}

// Surface is the full-screen area the calibration sweep paints on.
type Surface interface {
	Size() (width, height int)
	Fill(c models.Color)
	FillRect(r models.Rect, c models.Color)
	Marker(x, y int)
}

// Archiver stores a scatter history snapshot and returns where it went.
type Archiver interface {
	ArchiveScatter(ctx context.Context, points []models.ScatterPoint, durationMS int) (string, error)
}

// Discoverer lists serial ports that look like the instrument.
type Discoverer interface {
	Discover() ([]models.PortInfo, error)
}

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Measurement dispatches single scenarios and reports on their results.
type Measurement interface {
	Dispatch(ctx context.Context, sc *models.Scenario) (bool, error)
	InFlight() bool
	Presets() []Preset
	Stats() models.LatencyStats
	Archive(ctx context.Context) (ArchiveResult, error)
}

// Batch repeats one scenario at a fixed cadence.
type Batch interface {
	StartBatch(ctx context.Context, sc *models.Scenario, count int, interval time.Duration) (bool, error)
	CancelBatch() bool
	StopBatch()
	BatchState() *models.BatchState
}

// Calibration locates the sensor on screen.
type Calibration interface {
	Find(ctx context.Context) error
	CancelSweep() bool
	CalibrationView(ctx context.Context) (models.CalibrationView, error)
}

// Monitor follows the device's background light level.
type Monitor interface {
	StartMonitoring(ctx context.Context) error
	StopMonitoring(ctx context.Context) error
	LightWindow() []float64
	LastLightLevel() float64
}

type Status interface {
	RefreshStatus(ctx context.Context) error
	StatusView() models.StatusView
}

type Remote interface {
	SendReport(ctx context.Context, r models.InputReport) error
}

type Pages interface {
	ShowPage(ctx context.Context, slug string) error
	CurrentPage() string
}

// History exposes persisted measurement records.
type History interface {
	List(ctx context.Context, f HistoryFilter) ([]models.MeasurementRecord, error)
}

// Service aggregates the console components.
type Service struct {
	Measurement
	Batch
	Calibration
	Monitor
	Status
	Remote
	Pages
	History
	Authorization
}

// Deps are the collaborators NewService wires the components to.
type Deps struct {
	Transport  Transport
	Display    Display
	Surface    Surface
	Archiver   Archiver
	Discoverer Discoverer
	Repos      *repository.Repository
	Log        *logger.Logger

	Sweep      SweepConfig
	SigningKey string
}

func NewService(d Deps) *Service {
	log := logger.OrNop(d.Log)

	session := NewMeasurementSession(d.Transport, d.Display, d.Archiver, d.Repos.Measurements, log)
	batch := NewRepeatBatchController(session, log)
	monitor := NewLightMonitor(d.Transport, d.Display, log)
	sweep := NewCalibrationSweep(d.Surface, monitor, d.Display, d.Repos.Calibration, d.Sweep, log)
	status := NewStatusService(d.Transport, d.Display, d.Discoverer, log)

	return &Service{
		Measurement:   session,
		Batch:         batch,
		Calibration:   sweep,
		Monitor:       monitor,
		Status:        status,
		Remote:        NewRemoteControl(d.Transport, log),
		Pages:         NewNavigator(status, monitor, batch, sweep, log),
		History:       NewHistoryService(d.Repos.Measurements),
		Authorization: NewAuthService(d.Repos.Auth, d.SigningKey),
	}
}
