package trend

import (
	"math"

	"github.com/crimelens/crimelens-engine/internal/models"
)

// Activity compares a hotspot's recent daily counts against its prior
// baseline. This is an optional layer over the Daily Series, separate from
// the forecasting contract.
type Activity struct {
	WindowDays int     `json:"window_days"`
	Recent     int     `json:"recent"`
	PriorMean  float64 `json:"prior_mean"`
	Score      float64 `json:"score"`
	Elevated   bool    `json:"elevated"`
}

// elevatedScore is the z-score above which recent activity counts as elevated.
const elevatedScore = 2.0

// RecentActivity scores the trailing windowDays of the series against the
// mean and spread of the preceding days. Series shorter than twice the window
// report no elevation.
func RecentActivity(series models.DailySeries, windowDays int) Activity {
	if windowDays <= 0 {
		windowDays = 7
	}
	act := Activity{WindowDays: windowDays}
	if len(series) < 2*windowDays {
		return act
	}

	prior := series[:len(series)-windowDays]
	recent := series[len(series)-windowDays:]
	for _, dc := range recent {
		act.Recent += dc.Count
	}

	mean := 0.0
	for _, dc := range prior {
		mean += float64(dc.Count)
	}
	mean /= float64(len(prior))
	act.PriorMean = mean

	variance := 0.0
	for _, dc := range prior {
		d := float64(dc.Count) - mean
		variance += d * d
	}
	variance /= float64(len(prior))
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		stdDev = 0.01
	}

	recentMean := float64(act.Recent) / float64(windowDays)
	act.Score = (recentMean - mean) / stdDev
	act.Elevated = act.Score >= elevatedScore
	return act
}
