package service

import (
	"context"
	"testing"
	"time"

	"latemate_console/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBatch(t *testing.T) (*RepeatBatchController, *MeasurementSession, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	s := NewMeasurementSession(tr, &fakeDisplay{}, nil, nil, nil)
	b := NewRepeatBatchController(s, nil)
	t.Cleanup(b.StopBatch)
	return b, s, tr
}

func batchDone(b *RepeatBatchController) func() bool {
	return func() bool { return b.BatchState() == nil }
}

func TestBatch_PacedDispatchesWhenDeviceReplies(t *testing.T) {
	b, _, tr := newTestBatch(t)
	tr.onSend = func(msg any) {
		if _, ok := msg.(models.MeasureRequest); ok {
			go tr.deliver(exampleMeasurement())
		}
	}

	const interval = 30 * time.Millisecond
	ok, err := b.StartBatch(context.Background(), typeA(), 4, interval)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, batchDone(b), 2*time.Second, 5*time.Millisecond)

	times := tr.sendTimes()
	require.Len(t, times, 4)
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), interval)
	}
}

func TestBatch_NeverRepliesKeepsOneInFlight(t *testing.T) {
	b, s, tr := newTestBatch(t)

	ok, err := b.StartBatch(context.Background(), typeA(), 5, 5*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, batchDone(b), 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, tr.countType(models.MessageMeasure))
	assert.True(t, s.InFlight())

	// the slot frees only when the reply finally arrives
	ok, err = s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	assert.False(t, ok)

	tr.deliver(exampleMeasurement())
	ok, err = s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBatch_BlocksManualDispatchAndSecondBatch(t *testing.T) {
	b, s, tr := newTestBatch(t)
	tr.onSend = func(msg any) { go tr.deliver(exampleMeasurement()) }

	ok, err := b.StartBatch(context.Background(), typeA(), 10, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	require.Eventually(t, func() bool { return len(tr.sends()) == 1 && !s.InFlight() }, time.Second, 5*time.Millisecond)

	ok, err = s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = b.StartBatch(context.Background(), typeA(), 1, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, tr.countType(models.MessageMeasure))
}

func TestBatch_BusySessionRefusesStart(t *testing.T) {
	b, s, tr := newTestBatch(t)

	ok, err := s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.StartBatch(context.Background(), typeA(), 3, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, b.BatchState())
	assert.Len(t, tr.sends(), 1)
}

func TestBatch_CancelStopsAfterPendingWait(t *testing.T) {
	b, _, tr := newTestBatch(t)
	tr.onSend = func(msg any) { go tr.deliver(exampleMeasurement()) }

	ok, err := b.StartBatch(context.Background(), typeA(), 100, 40*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	require.Eventually(t, func() bool { return len(tr.sends()) == 1 }, time.Second, time.Millisecond)

	require.True(t, b.CancelBatch())
	st := b.BatchState()
	require.NotNil(t, st)
	assert.True(t, st.Cancelled)

	require.Eventually(t, batchDone(b), 2*time.Second, 5*time.Millisecond)
	assert.Len(t, tr.sends(), 1)
	assert.False(t, b.CancelBatch())
}

func TestBatch_StopTearsDownImmediately(t *testing.T) {
	b, s, _ := newTestBatch(t)

	ok, err := b.StartBatch(context.Background(), typeA(), 3, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	done := make(chan struct{})
	go func() {
		b.StopBatch()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StopBatch did not return")
	}
	assert.Nil(t, b.BatchState())

	s.mu.Lock()
	active := s.batchActive
	s.mu.Unlock()
	assert.False(t, active)
}

func TestBatch_SurvivesRequestContext(t *testing.T) {
	b, _, tr := newTestBatch(t)
	tr.onSend = func(msg any) { go tr.deliver(exampleMeasurement()) }

	ctx, cancel := context.WithCancel(context.Background())
	ok, err := b.StartBatch(ctx, typeA(), 2, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	cancel()

	require.Eventually(t, batchDone(b), 2*time.Second, 5*time.Millisecond)
	assert.Len(t, tr.sends(), 2)
}

func TestBatch_InvalidArguments(t *testing.T) {
	b, _, tr := newTestBatch(t)

	_, err := b.StartBatch(context.Background(), typeA(), 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidBatch)
	_, err = b.StartBatch(context.Background(), typeA(), 1, -time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidBatch)

	bad := &models.Scenario{Start: models.InputReport{Type: "pen"}}
	_, err = b.StartBatch(context.Background(), bad, 1, time.Millisecond)
	assert.ErrorIs(t, err, models.ErrInvalidScenario)

	ok, err := b.StartBatch(context.Background(), nil, 1, time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, tr.sends())
}

func TestBatch_DroppedChannelLetsLaterDispatchesThrough(t *testing.T) {
	b, s, tr := newTestBatch(t)

	ok, err := b.StartBatch(context.Background(), typeA(), 200, 5*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool { return s.InFlight() }, 2*time.Second, time.Millisecond)
	require.Equal(t, 1, tr.countType(models.MessageMeasure))

	tr.drop(errDown)
	tr.reopen()

	// the pacer sends again once the abandoned request no longer holds the slot
	require.Eventually(t, func() bool { return tr.countType(models.MessageMeasure) == 2 }, 2*time.Second, time.Millisecond)
	assert.NotNil(t, b.BatchState())
}
