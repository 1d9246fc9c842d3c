package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryService_NormalizesFilter(t *testing.T) {
	repo := &fakeMeasurementRepo{}
	svc := NewHistoryService(repo)

	loc := time.FixedZone("UTC+3", 3*3600)
	from := time.Date(2025, 5, 1, 10, 0, 0, 0, loc)
	to := from.Add(time.Hour)

	_, err := svc.List(context.Background(), HistoryFilter{From: from, To: to, ScenarioKey: "  key "})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, repo.gotFrom.Location())
	assert.True(t, repo.gotFrom.Equal(from))
	assert.True(t, repo.gotTo.Equal(to))
	assert.Equal(t, "key", repo.gotKey)
}

func TestHistoryService_ZeroBoundsStayZero(t *testing.T) {
	repo := &fakeMeasurementRepo{}
	_, err := NewHistoryService(repo).List(context.Background(), HistoryFilter{})
	require.NoError(t, err)
	assert.True(t, repo.gotFrom.IsZero())
	assert.True(t, repo.gotTo.IsZero())
}

func TestHistoryService_InvalidRange(t *testing.T) {
	repo := &fakeMeasurementRepo{}
	now := time.Now()
	_, err := NewHistoryService(repo).List(context.Background(), HistoryFilter{From: now, To: now.Add(-time.Minute)})
	assert.ErrorIs(t, err, errInvalidTimeRange)
}
