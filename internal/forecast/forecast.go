// Package forecast implements the short moving-average, tip-to-tail-slope
// predictor that turns recent per-day history into tomorrow's predicted
// total usage.
package forecast

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jgalley/fifoguard/internal/model"
	"github.com/jgalley/fifoguard/internal/store"
)

// historyWindowDays is how far back Compute reads for its daily totals.
const historyWindowDays = 14

// movingAverageWindow caps how many of the most recent days feed the
// moving average.
const movingAverageWindow = 7

// Compute reads the last 14 days of history, sums size_mb per date, and
// predicts tomorrow's total as (moving average of the last ≤7 days) +
// (tip-to-tail growth rate). With 0 or 1 days of history it predicts the
// current total with zero growth.
func Compute(ctx context.Context, st store.Store, currentMB float64) (model.Forecast, error) {
	history, err := st.GetHistory(ctx, historyWindowDays, model.NoFilter())
	if err != nil {
		return model.Forecast{}, fmt.Errorf("reading history: %w", err)
	}

	dailyTotals := make(map[string]float64)
	for _, snap := range history {
		dailyTotals[snap.MeasurementDate] += snap.SizeMB
	}

	dates := make([]string, 0, len(dailyTotals))
	for date := range dailyTotals {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	fc := model.Forecast{
		ForecastDate:  time.Now().AddDate(0, 0, 1).Format(model.DateForm),
		CurrentMB:     currentMB,
		DaysAvailable: len(dates),
	}

	if fc.DaysAvailable <= 1 {
		fc.PredictedMB = currentMB
		fc.GrowthRate = 0
		return fc, nil
	}

	window := movingAverageWindow
	if fc.DaysAvailable < window {
		window = fc.DaysAvailable
	}

	var sum float64
	for _, date := range dates[fc.DaysAvailable-window:] {
		sum += dailyTotals[date]
	}
	movingAvg := sum / float64(window)

	firstVal := dailyTotals[dates[0]]
	lastVal := dailyTotals[dates[len(dates)-1]]
	fc.GrowthRate = (lastVal - firstVal) / float64(fc.DaysAvailable)

	fc.PredictedMB = movingAvg + fc.GrowthRate
	if fc.PredictedMB < 0 {
		fc.PredictedMB = 0
	}

	return fc, nil
}

// StoreForecast persists fc as a new forecast row targeting tomorrow's
// local date.
func StoreForecast(ctx context.Context, st store.Store, fc model.Forecast) error {
	tomorrow := time.Now().AddDate(0, 0, 1).Format(model.DateForm)
	return st.InsertForecast(ctx, tomorrow, fc.PredictedMB)
}
