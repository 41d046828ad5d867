// Package forecast fits a weekly-seasonal autoregressive model to a hotspot's
// daily series and projects incident volume forward with 95% confidence
// bounds. Too little history or a non-convergent fit yields an unavailable
// result, never an error: both are expected, retryable outcomes for the
// caller.
package forecast

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/crimelens/crimelens-engine/internal/models"
)

// MinHistoryDays is the hard minimum series length: two full weekly cycles.
// Shorter series fail fast rather than produce an unreliable fit.
const MinHistoryDays = 14

// confidenceLevel fixes the two-sided interval width.
const confidenceLevel = 0.95

// Forecast produces a models.ForecastResult for the cluster's daily series
// over the next horizon days. The computation is self-contained and mutates
// nothing.
func Forecast(series models.DailySeries, label, horizon int) models.ForecastResult {
	if horizon <= 0 {
		return models.Unavailable(label, horizon, "forecast horizon must be positive")
	}
	if len(series) < MinHistoryDays {
		return models.Unavailable(label, horizon, "insufficient history: need at least 14 days of observations")
	}

	model, err := fitSARIMA(series.Counts())
	if err != nil {
		return models.Unavailable(label, horizon, "model failed to converge on this series")
	}

	points, stderrs := model.forecast(horizon)
	for i := range points {
		if math.IsNaN(points[i]) || math.IsInf(points[i], 0) ||
			math.IsNaN(stderrs[i]) || math.IsInf(stderrs[i], 0) {
			return models.Unavailable(label, horizon, "model produced a degenerate forecast")
		}
	}

	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.5 + confidenceLevel/2)
	lastDay := series[len(series)-1].Day

	result := models.ForecastResult{
		Available: true,
		Label:     label,
		Horizon:   horizon,
		Points:    make([]models.ForecastPoint, 0, horizon),
		CreatedAt: time.Now().UTC(),
	}
	for i := 0; i < horizon; i++ {
		point := points[i]
		lower := point - z*stderrs[i]
		upper := point + z*stderrs[i]

		// Counts cannot go negative; clamp for display while preserving
		// lower <= point <= upper.
		if point < 0 {
			point = 0
		}
		if lower < 0 {
			lower = 0
		}
		if lower > point {
			lower = point
		}
		if upper < point {
			upper = point
		}

		result.Points = append(result.Points, models.ForecastPoint{
			Day:      lastDay.AddDate(0, 0, i+1),
			Forecast: point,
			Lower:    lower,
			Upper:    upper,
		})
	}
	return result
}
