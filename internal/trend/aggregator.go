// Package trend reduces a cluster's observations into calendar-day series and
// profiles consumed by the forecaster, the charts, and the PDF report.
package trend

import (
	"errors"
	"fmt"
	"time"

	"github.com/crimelens/crimelens-engine/internal/models"
)

// Aggregation errors. ErrEmptyCluster means the requested label has no
// members; ErrInvalidLabel rejects noise and negative labels outright.
var (
	ErrEmptyCluster = errors.New("cluster has no observations")
	ErrInvalidLabel = errors.New("invalid cluster label")
)

// DailySeries builds the zero-filled per-day count series for one cluster,
// spanning every calendar day from the cluster's earliest to latest
// observation inclusive. The result is a pure function of the assignment and
// label: calling it twice yields identical series.
func DailySeries(assignment models.ClusterAssignment, label int) (models.DailySeries, error) {
	if label < 0 {
		return nil, fmt.Errorf("%w: %d (noise is not a hotspot)", ErrInvalidLabel, label)
	}

	members := assignment.Members(label)
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: label %d", ErrEmptyCluster, label)
	}

	counts := make(map[time.Time]int, len(members))
	min, max := members[0].Day(), members[0].Day()
	for _, obs := range members {
		day := obs.Day()
		counts[day]++
		if day.Before(min) {
			min = day
		}
		if day.After(max) {
			max = day
		}
	}

	series := make(models.DailySeries, 0, int(max.Sub(min).Hours()/24)+1)
	for day := min; !day.After(max); day = day.AddDate(0, 0, 1) {
		series = append(series, models.DailyCount{Day: day, Count: counts[day]})
	}
	return series, nil
}

// HourlyProfile counts observations per hour of day (index 0..23).
func HourlyProfile(observations []models.Observation) [24]int {
	var profile [24]int
	for _, obs := range observations {
		profile[obs.Timestamp.Hour()]++
	}
	return profile
}

// WeekdayProfile counts observations per weekday, Monday first (index 0..6).
func WeekdayProfile(observations []models.Observation) [7]int {
	var profile [7]int
	for _, obs := range observations {
		// time.Weekday is Sunday-based; rotate to Monday-first.
		profile[(int(obs.Timestamp.Weekday())+6)%7]++
	}
	return profile
}
