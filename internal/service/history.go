package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"latemate_console/internal/models"
	"latemate_console/internal/repository"
)

// HistoryFilter narrows the measurement history; zero fields are unbounded.
type HistoryFilter struct {
	From        time.Time
	To          time.Time
	ScenarioKey string
}

type HistoryService struct {
	records repository.MeasurementRepo
}

func NewHistoryService(records repository.MeasurementRepo) *HistoryService {
	return &HistoryService{records: records}
}

var errInvalidTimeRange = errors.New("invalid time range: from must be <= to")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func normalizeFilter(f HistoryFilter) (HistoryFilter, error) {
	out := HistoryFilter{
		From:        normalizeToUTC(f.From),
		To:          normalizeToUTC(f.To),
		ScenarioKey: strings.TrimSpace(f.ScenarioKey),
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return HistoryFilter{}, errInvalidTimeRange
	}
	return out, nil
}

func (s *HistoryService) List(ctx context.Context, f HistoryFilter) ([]models.MeasurementRecord, error) {
	nf, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}
	return s.records.List(ctx, nf.From, nf.To, nf.ScenarioKey)
}
