package handlers

import (
	"context"
	"net/http"
	"time"

	"latemate_console/internal/display"
	"latemate_console/internal/models"
	"latemate_console/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockMeasurement struct {
	dispatched  bool
	dispatchErr error
	inFlight    bool
	stats       models.LatencyStats
	archive     service.ArchiveResult
	archiveErr  error

	lastScenario  *models.Scenario
	dispatchCalls int
}

func (m *mockMeasurement) Dispatch(ctx context.Context, sc *models.Scenario) (bool, error) {
	m.dispatchCalls++
	m.lastScenario = sc
	return m.dispatched, m.dispatchErr
}
func (m *mockMeasurement) InFlight() bool             { return m.inFlight }
func (m *mockMeasurement) Presets() []service.Preset  { return []service.Preset{{Name: "type-a"}} }
func (m *mockMeasurement) Stats() models.LatencyStats { return m.stats }
func (m *mockMeasurement) Archive(ctx context.Context) (service.ArchiveResult, error) {
	return m.archive, m.archiveErr
}

type mockBatch struct {
	started   bool
	startErr  error
	cancelled bool
	state     *models.BatchState

	lastCount    int
	lastInterval time.Duration
	startCalls   int
}

func (m *mockBatch) StartBatch(ctx context.Context, sc *models.Scenario, count int, interval time.Duration) (bool, error) {
	m.startCalls++
	m.lastCount = count
	m.lastInterval = interval
	return m.started, m.startErr
}
func (m *mockBatch) CancelBatch() bool              { return m.cancelled }
func (m *mockBatch) StopBatch()                     {}
func (m *mockBatch) BatchState() *models.BatchState { return m.state }

type mockCalibration struct {
	findErr   error
	cancelled bool
	view      models.CalibrationView
	viewErr   error
	findCalls int
}

func (m *mockCalibration) Find(ctx context.Context) error {
	m.findCalls++
	return m.findErr
}
func (m *mockCalibration) CancelSweep() bool { return m.cancelled }
func (m *mockCalibration) CalibrationView(ctx context.Context) (models.CalibrationView, error) {
	return m.view, m.viewErr
}

type mockMonitor struct {
	last   float64
	window []float64
}

func (m *mockMonitor) StartMonitoring(ctx context.Context) error { return nil }
func (m *mockMonitor) StopMonitoring(ctx context.Context) error  { return nil }
func (m *mockMonitor) LightWindow() []float64                    { return m.window }
func (m *mockMonitor) LastLightLevel() float64                   { return m.last }

type mockStatus struct {
	view       models.StatusView
	refreshErr error
	refreshes  int
}

func (m *mockStatus) RefreshStatus(ctx context.Context) error {
	m.refreshes++
	return m.refreshErr
}
func (m *mockStatus) StatusView() models.StatusView { return m.view }

type mockRemote struct {
	err  error
	sent []models.InputReport
}

func (m *mockRemote) SendReport(ctx context.Context, r models.InputReport) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, r)
	return nil
}

type mockPages struct {
	current string
	err     error
}

func (m *mockPages) ShowPage(ctx context.Context, slug string) error {
	if m.err != nil {
		return m.err
	}
	m.current = slug
	return nil
}
func (m *mockPages) CurrentPage() string { return m.current }

type mockHistory struct {
	resp []models.MeasurementRecord
	err  error
	last service.HistoryFilter
}

func (m *mockHistory) List(ctx context.Context, f service.HistoryFilter) ([]models.MeasurementRecord, error) {
	m.last = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestHandler(s *service.Service) *Handler {
	return NewHandler(s, display.NewHub(1920, 1080, nil), BatchDefaults{}, nil)
}

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return newTestHandler(s).InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
