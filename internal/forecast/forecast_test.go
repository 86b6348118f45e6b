package forecast

import (
	"context"
	"testing"

	"github.com/jgalley/fifoguard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal in-memory store.Store double covering only what
// Compute/StoreForecast touch.
type fakeStore struct {
	history        []model.Snapshot
	insertedDate   string
	insertedAmount float64
}

func (f *fakeStore) Close() error  { return nil }
func (f *fakeStore) IsOpen() bool  { return true }

func (f *fakeStore) InsertSnapshot(ctx context.Context, snap model.Snapshot) error { return nil }

func (f *fakeStore) GetHistory(ctx context.Context, days int, filter model.HistoryFilter) ([]model.Snapshot, error) {
	return f.history, nil
}

func (f *fakeStore) GetTotalCurrentMB(ctx context.Context) (float64, error) { return 0, nil }

func (f *fakeStore) GetAverageWeights(ctx context.Context, days int) ([]model.Weight, error) {
	return nil, nil
}

func (f *fakeStore) GetHistoryDayCount(ctx context.Context) (int, error) { return len(f.history), nil }

func (f *fakeStore) InsertForecast(ctx context.Context, forecastDate string, predictedMB float64) error {
	f.insertedDate = forecastDate
	f.insertedAmount = predictedMB
	return nil
}

func (f *fakeStore) GetLatestForecast(ctx context.Context) (float64, error) { return 0, nil }

func (f *fakeStore) LogDeletion(ctx context.Context, rec model.DeletionRecord) error { return nil }

func (f *fakeStore) GetDeletionLogs(ctx context.Context, limit int) ([]model.DeletionRecord, error) {
	return nil, nil
}

func (f *fakeStore) SetConfig(ctx context.Context, key, value string) error { return nil }

func (f *fakeStore) GetConfig(ctx context.Context, key, defaultVal string) (string, error) {
	return defaultVal, nil
}

func (f *fakeStore) GetSchedulerConfig(ctx context.Context) (model.SchedulerConfig, error) {
	return model.SchedulerConfig{}, nil
}

func (f *fakeStore) SetSchedulerConfig(ctx context.Context, cfg model.SchedulerConfig) error {
	return nil
}

func TestComputeNoHistoryPredictsCurrent(t *testing.T) {
	st := &fakeStore{}
	fc, err := Compute(context.Background(), st, 500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, fc.PredictedMB)
	assert.Zero(t, fc.GrowthRate)
	assert.Equal(t, 0, fc.DaysAvailable)
}

func TestComputeSingleDayPredictsCurrent(t *testing.T) {
	st := &fakeStore{history: []model.Snapshot{
		{MeasurementDate: "2026-07-20", SizeMB: 300},
	}}
	fc, err := Compute(context.Background(), st, 300)
	require.NoError(t, err)
	assert.Equal(t, 300.0, fc.PredictedMB)
	assert.Zero(t, fc.GrowthRate)
	assert.Equal(t, 1, fc.DaysAvailable)
}

// TestComputeLinearGrowthWorkedExample mirrors the spec's worked 14-day
// example: daily totals rising linearly from 100 to 230 over 14 days
// (step 10) yields moving_avg=200 (mean of the last 7: 170..230),
// growth=(230-100)/14≈9.2857, predicted≈209.29.
func TestComputeLinearGrowthWorkedExample(t *testing.T) {
	var history []model.Snapshot
	for d := 0; d < 14; d++ {
		val := 100.0 + float64(d)*10.0
		history = append(history, model.Snapshot{
			MeasurementDate: dateFor(d),
			SizeMB:          val,
		})
	}
	st := &fakeStore{history: history}

	fc, err := Compute(context.Background(), st, 230)
	require.NoError(t, err)
	assert.Equal(t, 14, fc.DaysAvailable)
	assert.InDelta(t, 9.2857, fc.GrowthRate, 0.001)
	assert.InDelta(t, 209.2857, fc.PredictedMB, 0.01)
}

func dateFor(offset int) string {
	// Deterministic increasing dates; the package only sorts them
	// lexicographically, so zero-padded day-of-month suffices.
	day := 1 + offset
	return "2026-01-" + twoDigit(day)
}

func twoDigit(n int) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

func TestStoreForecastPersistsUnderTomorrowsDate(t *testing.T) {
	st := &fakeStore{}
	err := StoreForecast(context.Background(), st, model.Forecast{PredictedMB: 42})
	require.NoError(t, err)
	assert.Equal(t, 42.0, st.insertedAmount)
	assert.NotEmpty(t, st.insertedDate)
}
