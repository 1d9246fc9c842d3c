package service

import (
	"context"

	"latemate_console/internal/logger"
	"latemate_console/internal/models"
)

// RemoteControl forwards single input reports to the device.
type RemoteControl struct {
	transport Transport
	log       *logger.Logger
}

func NewRemoteControl(t Transport, log *logger.Logger) *RemoteControl {
	return &RemoteControl{transport: t, log: logger.OrNop(log).Named("remote")}
}

func (r *RemoteControl) SendReport(ctx context.Context, rep models.InputReport) error {
	if err := rep.Validate(); err != nil {
		return err
	}
	if err := r.transport.Send(ctx, models.NewSendHIDReport(rep)); err != nil {
		return err
	}
	r.log.Debugw("hid_report_sent", "type", rep.Type)
	return nil
}
