package service

import (
	"context"
	"sync"

	"latemate_console/internal/logger"
	"latemate_console/internal/models"
)

// StatusService caches the device's last status reply.
type StatusService struct {
	transport  Transport
	display    Display
	discoverer Discoverer
	log        *logger.Logger

	mu     sync.Mutex
	device *models.DeviceStatus
}

func NewStatusService(t Transport, d Display, disc Discoverer, log *logger.Logger) *StatusService {
	s := &StatusService{
		transport:  t,
		display:    d,
		discoverer: disc,
		log:        logger.OrNop(log).Named("status"),
	}
	t.Subscribe(func(msg models.Inbound) {
		if st, ok := msg.(*models.DeviceStatus); ok {
			s.onStatus(*st)
		}
	})
	return s
}

// RefreshStatus asks the device for its status; the reply arrives later.
func (s *StatusService) RefreshStatus(ctx context.Context) error {
	return s.transport.Send(ctx, models.Command{Type: models.MessageStatus})
}

func (s *StatusService) onStatus(st models.DeviceStatus) {
	s.mu.Lock()
	s.device = &st
	s.mu.Unlock()
	s.log.Infow("device_status", "hardware", st.Version.Hardware, "firmware", st.Version.Firmware, "max_light_level", st.MaxLightLevel)
	s.display.ShowStatus(s.StatusView())
}

// StatusView combines the channel state, cached status and matching USB ports.
func (s *StatusService) StatusView() models.StatusView {
	v := models.StatusView{Connected: s.transport.IsOpen()}

	s.mu.Lock()
	if s.device != nil {
		d := *s.device
		v.Device = &d
	}
	s.mu.Unlock()

	if s.discoverer != nil {
		ports, err := s.discoverer.Discover()
		if err != nil {
			v.PortsErr = err.Error()
		}
		v.Ports = ports
	}
	return v
}
