package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"latemate_console/internal/logger"
)

var ErrUnknownPage = errors.New("unknown page")

const (
	PageStatus      = "status"
	PageMonitor     = "monitor"
	PageRemote      = "remote"
	PageMeasure     = "measure"
	PageCalibration = "calibration"
)

// Page is one console view. Deactivate must release timers the page started.
type Page interface {
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
}

// pageFuncs adapts a pair of funcs to Page; nil funcs do nothing.
type pageFuncs struct {
	activate   func(ctx context.Context) error
	deactivate func(ctx context.Context) error
}

func (p pageFuncs) Activate(ctx context.Context) error {
	if p.activate == nil {
		return nil
	}
	return p.activate(ctx)
}

func (p pageFuncs) Deactivate(ctx context.Context) error {
	if p.deactivate == nil {
		return nil
	}
	return p.deactivate(ctx)
}

// Navigator switches between pages, deactivating the current one first.
type Navigator struct {
	pages map[string]Page
	log   *logger.Logger

	mu      sync.Mutex
	current string
}

func NewNavigator(status *StatusService, monitor *LightMonitor, batch *RepeatBatchController, sweep *CalibrationSweep, log *logger.Logger) *Navigator {
	return &Navigator{
		log: logger.OrNop(log).Named("pages"),
		pages: map[string]Page{
			PageStatus: pageFuncs{activate: status.RefreshStatus},
			PageMonitor: pageFuncs{
				activate:   monitor.StartMonitoring,
				deactivate: monitor.StopMonitoring,
			},
			PageRemote: pageFuncs{},
			PageMeasure: pageFuncs{
				deactivate: func(context.Context) error {
					batch.StopBatch()
					return nil
				},
			},
			PageCalibration: pageFuncs{
				activate: monitor.StartMonitoring,
				deactivate: func(ctx context.Context) error {
					sweep.CancelSweep()
					return monitor.StopMonitoring(ctx)
				},
			},
		},
	}
}

// ShowPage makes slug the current page. Device errors from activation are
// logged; the switch still happens.
func (n *Navigator) ShowPage(ctx context.Context, slug string) error {
	next, ok := n.pages[slug]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPage, slug)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == slug {
		return nil
	}
	if prev, ok := n.pages[n.current]; ok {
		if err := prev.Deactivate(ctx); err != nil {
			n.log.Warnw("page_deactivate_failed", "page", n.current, "err", err)
		}
	}
	n.current = slug
	if err := next.Activate(ctx); err != nil {
		n.log.Warnw("page_activate_failed", "page", slug, "err", err)
	}
	n.log.Infow("page_shown", "page", slug)
	return nil
}

func (n *Navigator) CurrentPage() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}
