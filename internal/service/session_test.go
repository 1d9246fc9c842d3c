package service

import (
	"context"
	"errors"
	"testing"

	"latemate_console/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*MeasurementSession, *fakeTransport, *fakeDisplay, *fakeMeasurementRepo) {
	t.Helper()
	tr := newFakeTransport()
	disp := &fakeDisplay{}
	repo := &fakeMeasurementRepo{}
	return NewMeasurementSession(tr, disp, &fakeArchiver{}, repo, nil), tr, disp, repo
}

func exampleMeasurement() *models.Measurement {
	levels := [][2]uint32{{0, 10}}
	for us := uint32(1000); us < 150000; us += 1000 {
		levels = append(levels, [2]uint32{us, 10})
	}
	levels = append(levels, [2]uint32{150000, 900})
	return &models.Measurement{MaxLightLevel: 1000, LightLevels: levels, ChangeUS: u32(150000)}
}

func TestSession_ExampleScenarioNormalizes(t *testing.T) {
	s, tr, disp, repo := newTestSession(t)

	ok, err := s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, tr.sends(), 1)

	req, isReq := tr.sends()[0].(models.MeasureRequest)
	require.True(t, isReq)
	assert.Equal(t, models.MessageMeasure, req.Type)
	assert.Equal(t, 300, req.DurationMS)

	tr.deliver(exampleMeasurement())

	view := disp.lastMeasurement()
	require.NotEmpty(t, view.Series)
	assert.Equal(t, models.SeriesPoint{OffsetMS: 150.0, LevelPercent: 90.0}, view.Series[len(view.Series)-1])
	assert.Equal(t, models.SeriesPoint{OffsetMS: 0, LevelPercent: 1.0}, view.Series[0])
	require.NotNil(t, view.ChangeMS)
	assert.Equal(t, 150.0, *view.ChangeMS)
	assert.Equal(t, 300, view.DurationMS)

	scatter := disp.lastScatter()
	require.Len(t, scatter.Points, 1)
	assert.Equal(t, 150.0, scatter.Points[0].DelayMS)

	assert.False(t, s.InFlight())
	require.Len(t, repo.records, 1)
	assert.Equal(t, typeA().Key(), repo.records[0].ScenarioKey)
}

func TestSession_DispatchWhileInFlightSendsNothing(t *testing.T) {
	s, tr, _, _ := newTestSession(t)

	ok, err := s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		ok, err = s.Dispatch(context.Background(), typeA())
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Len(t, tr.sends(), 1)
}

func TestSession_NilScenarioIsNoop(t *testing.T) {
	s, tr, _, _ := newTestSession(t)
	ok, err := s.Dispatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, tr.sends())
}

func TestSession_InvalidScenarioNeverReachesTransport(t *testing.T) {
	s, tr, _, _ := newTestSession(t)
	bad := &models.Scenario{DurationMS: 300, Start: models.InputReport{Type: "joystick"}}

	ok, err := s.Dispatch(context.Background(), bad)
	assert.False(t, ok)
	assert.ErrorIs(t, err, models.ErrInvalidScenario)
	assert.Empty(t, tr.sends())
	assert.False(t, s.InFlight())
}

func TestSession_SendFailureClearsInFlight(t *testing.T) {
	s, tr, _, _ := newTestSession(t)
	tr.sendErr = errDown

	ok, err := s.Dispatch(context.Background(), typeA())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, errDown))
	assert.False(t, s.InFlight())

	tr.sendErr = nil
	ok, err = s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSession_NewScenarioClearsHistory(t *testing.T) {
	s, tr, disp, _ := newTestSession(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := s.Dispatch(ctx, typeA())
		require.NoError(t, err)
		require.True(t, ok)
		tr.deliver(exampleMeasurement())
	}
	require.Len(t, disp.lastScatter().Points, 3)
	assert.Equal(t, 3, s.Stats().Samples)

	other := typeA()
	other.DurationMS = 500
	ok, err := s.Dispatch(ctx, other)
	require.NoError(t, err)
	require.True(t, ok)

	// history survives until the first result of the new scenario
	assert.Equal(t, 3, s.Stats().Samples)

	tr.deliver(&models.Measurement{MaxLightLevel: 1000, LightLevels: [][2]uint32{{0, 10}, {80000, 900}}, ChangeUS: u32(80000)})

	scatter := disp.lastScatter()
	require.Len(t, scatter.Points, 1)
	assert.Equal(t, 80.0, scatter.Points[0].DelayMS)
	assert.Equal(t, 500, scatter.DurationMS)
	assert.Equal(t, 1, s.Stats().Runs)
}

func TestSession_SameScenarioAccumulatesDistinctJitter(t *testing.T) {
	s, tr, disp, _ := newTestSession(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Dispatch(ctx, typeA())
		require.NoError(t, err)
		tr.deliver(exampleMeasurement())
	}
	points := disp.lastScatter().Points
	require.Len(t, points, 5)

	seen := map[float64]bool{}
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Jitter, 0.0)
		assert.Less(t, p.Jitter, 1.0)
		assert.False(t, seen[p.Jitter], "jitter %v repeated", p.Jitter)
		seen[p.Jitter] = true
	}
}

func TestSession_NoChangeAddsNoScatterPoint(t *testing.T) {
	s, tr, disp, _ := newTestSession(t)

	_, err := s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	tr.deliver(&models.Measurement{MaxLightLevel: 1000, LightLevels: [][2]uint32{{0, 10}, {1000, 10}}})

	assert.Empty(t, disp.lastScatter().Points)
	assert.Nil(t, disp.lastMeasurement().ChangeMS)

	st := s.Stats()
	assert.Equal(t, models.StatsNoSuccesses, st.Kind)
	assert.True(t, st.HasMissing)
}

func TestSession_StrayResultIgnored(t *testing.T) {
	s, tr, disp, repo := newTestSession(t)

	tr.deliver(exampleMeasurement())

	assert.Empty(t, disp.measurements)
	assert.Empty(t, repo.records)

	ok, err := s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSession_ZeroMaxLightLevel(t *testing.T) {
	s, tr, disp, _ := newTestSession(t)

	_, err := s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	tr.deliver(&models.Measurement{MaxLightLevel: 0, LightLevels: [][2]uint32{{0, 10}, {2000, 30}}})

	want := []models.SeriesPoint{{OffsetMS: 0, LevelPercent: 0}, {OffsetMS: 2, LevelPercent: 0}}
	if diff := cmp.Diff(want, disp.lastMeasurement().Series); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_PersistFailureDoesNotBreakSession(t *testing.T) {
	s, tr, disp, repo := newTestSession(t)
	repo.err = errors.New("disk full")

	_, err := s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	tr.deliver(exampleMeasurement())

	assert.Len(t, disp.measurements, 1)
	assert.False(t, s.InFlight())
}

func TestSession_Archive(t *testing.T) {
	tr := newFakeTransport()
	disp := &fakeDisplay{}
	arch := &fakeArchiver{}
	s := NewMeasurementSession(tr, disp, arch, nil, nil)
	ctx := context.Background()

	_, err := s.Archive(ctx)
	assert.ErrorIs(t, err, ErrNothingToArchive)

	for i := 0; i < 2; i++ {
		_, err := s.Dispatch(ctx, typeA())
		require.NoError(t, err)
		tr.deliver(exampleMeasurement())
	}

	res, err := s.Archive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "archive/scatter.png", res.Path)
	assert.Equal(t, models.StatsMultiple, res.Stats.Kind)
	assert.Len(t, arch.points, 2)

	assert.Empty(t, disp.lastScatter().Points)
	assert.Empty(t, disp.lastMeasurement().Series)
	assert.Equal(t, models.StatsNoRuns, s.Stats().Kind)
}

func TestSession_ArchiveWithoutArchiver(t *testing.T) {
	s := NewMeasurementSession(newFakeTransport(), &fakeDisplay{}, nil, nil, nil)
	_, err := s.Archive(context.Background())
	assert.ErrorIs(t, err, errArchiveDisabled)
}

func TestSession_Presets(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	names := map[string]bool{}
	for _, p := range s.Presets() {
		names[p.Name] = true
		assert.NoError(t, p.Scenario.Validate(), p.Name)
		assert.Equal(t, models.MessageMeasure, p.Scenario.Type)
	}
	assert.Equal(t, map[string]bool{"type-a": true, "draw": true, "doom": true}, names)
}

func TestSession_DroppedChannelFreesInFlight(t *testing.T) {
	s, tr, disp, repo := newTestSession(t)
	ctx := context.Background()

	ok, err := s.Dispatch(ctx, typeA())
	require.NoError(t, err)
	require.True(t, ok)

	tr.drop(errDown)
	assert.False(t, s.InFlight())
	assert.Empty(t, disp.measurements)
	assert.Empty(t, repo.records)

	tr.reopen()
	ok, err = s.Dispatch(ctx, typeA())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, tr.countType(models.MessageMeasure))

	tr.deliver(exampleMeasurement())
	assert.False(t, s.InFlight())
	assert.Len(t, disp.lastScatter().Points, 1)
}

func TestSession_CloseWithNothingInFlight(t *testing.T) {
	s, tr, _, _ := newTestSession(t)

	tr.drop(errDown)
	assert.False(t, s.InFlight())

	tr.reopen()
	ok, err := s.Dispatch(context.Background(), typeA())
	require.NoError(t, err)
	assert.True(t, ok)
}
