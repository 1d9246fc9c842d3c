package service

import (
	"context"
	"sync"

	"latemate_console/internal/logger"
	"latemate_console/internal/models"
)

// monitorWindow is the number of background samples kept for the chart.
const monitorWindow = 500

// LightMonitor follows background_light_level telemetry. While active it
// re-sends start_monitoring every time the device channel reopens.
type LightMonitor struct {
	transport Transport
	display   Display
	log       *logger.Logger

	mu     sync.Mutex
	active bool
	last   float64
	window []float64
}

func NewLightMonitor(t Transport, d Display, log *logger.Logger) *LightMonitor {
	m := &LightMonitor{
		transport: t,
		display:   d,
		log:       logger.OrNop(log).Named("monitor"),
	}
	t.Subscribe(func(msg models.Inbound) {
		if bg, ok := msg.(*models.BackgroundLightLevel); ok {
			m.onLevel(bg.Avg)
		}
	})
	t.SubscribeToOpen(func() {
		m.mu.Lock()
		active := m.active
		m.mu.Unlock()
		if !active {
			return
		}
		if err := m.transport.Send(context.Background(), models.Command{Type: models.MessageStartMonitoring}); err != nil {
			m.log.Warnw("monitoring_resume_failed", "err", err)
		}
	})
	// a level read on a previous connection says nothing about the screen now
	t.SubscribeToClose(func(error) {
		m.mu.Lock()
		m.last = 0
		m.mu.Unlock()
	})
	return m
}

// StartMonitoring marks monitoring active and asks the device to stream.
// A level left over from an earlier stream is discarded.
func (m *LightMonitor) StartMonitoring(ctx context.Context) error {
	m.mu.Lock()
	if !m.active {
		m.last = 0
	}
	m.active = true
	m.mu.Unlock()
	return m.transport.Send(ctx, models.Command{Type: models.MessageStartMonitoring})
}

func (m *LightMonitor) StopMonitoring(ctx context.Context) error {
	m.mu.Lock()
	m.active = false
	m.last = 0
	m.mu.Unlock()
	return m.transport.Send(ctx, models.Command{Type: models.MessageStopMonitoring})
}

func (m *LightMonitor) onLevel(avg float64) {
	m.mu.Lock()
	m.last = avg
	m.window = append(m.window, avg*100)
	if n := len(m.window); n > monitorWindow {
		m.window = append(m.window[:0], m.window[n-monitorWindow:]...)
	}
	window := append([]float64(nil), m.window...)
	m.mu.Unlock()

	m.display.ShowBackground(window)
}

// LastLightLevel is the most recent average, 0..1, or 0 while not monitoring.
func (m *LightMonitor) LastLightLevel() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// LightWindow returns the rolling window in percent, oldest first.
func (m *LightMonitor) LightWindow() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.window...)
}
