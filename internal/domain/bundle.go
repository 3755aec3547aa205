package domain

import (
	"errors"
	"time"
)

// ErrNoPeak is returned when a day has no production points to pick a peak
// from.
var ErrNoPeak = errors.New("no production points for requested day")

// EstimateBundle is the immutable result of one estimation run.
//
// Watts is the unaggregated instant-basis series (one value per 15-minute
// mark), WhPeriod the hourly means of the average basis, WhDays the daily
// sums of the hourly means. All series are ordered by time and share one
// fixed-offset location.
type EstimateBundle struct {
	Watts    []PowerPoint
	WhPeriod []PowerPoint
	WhDays   []EnergyDay
	Location *time.Location
}

// Now returns the current time in the bundle's timezone.
func (b *EstimateBundle) Now() time.Time {
	return time.Now().In(b.Location)
}

// DayProduction returns the estimated energy in Wh for the calendar day
// containing day, or 0 when the day is outside the estimate.
func (b *EstimateBundle) DayProduction(day time.Time) int {
	target := floorDay(day.In(b.Location))
	for _, d := range b.WhDays {
		if d.Day.Equal(target) {
			return d.Wh
		}
	}
	return 0
}

// EnergyProductionToday returns today's estimated total in Wh.
func (b *EstimateBundle) EnergyProductionToday() int {
	return b.DayProduction(b.Now())
}

// EnergyProductionTomorrow returns tomorrow's estimated total in Wh.
func (b *EstimateBundle) EnergyProductionTomorrow() int {
	return b.DayProduction(b.Now().AddDate(0, 0, 1))
}

// EnergyProductionTodayRemaining returns the estimated energy in Wh from now
// until the end of today.
func (b *EstimateBundle) EnergyProductionTodayRemaining() int {
	return b.energyRemainingAt(b.Now())
}

func (b *EstimateBundle) energyRemainingAt(now time.Time) int {
	return intervalSum(b.WhPeriod, now, floorDay(now).AddDate(0, 0, 1))
}

// PowerProductionNow returns the estimated power right now.
func (b *EstimateBundle) PowerProductionNow() int {
	return b.PowerAt(b.Now())
}

// PowerAt returns the estimated power at an arbitrary instant using a
// most-recent-value lookup, or 0 outside the estimate's range.
func (b *EstimateBundle) PowerAt(t time.Time) int {
	watts := 0
	for _, p := range b.Watts {
		if p.Time.After(t) {
			return watts
		}
		watts = p.Watts
	}
	return 0
}

// PeakProductionTime returns the timestamp of the highest instant-basis power
// on the calendar day containing day.
func (b *EstimateBundle) PeakProductionTime(day time.Time) (time.Time, error) {
	target := floorDay(day.In(b.Location))
	var (
		best     int
		bestTime time.Time
		foundAny bool
	)
	for _, p := range b.Watts {
		if !floorDay(p.Time).Equal(target) {
			continue
		}
		if !foundAny || p.Watts > best {
			best = p.Watts
			bestTime = p.Time
			foundAny = true
		}
	}
	if !foundAny {
		return time.Time{}, ErrNoPeak
	}
	return bestTime, nil
}

// EnergyCurrentHour returns the estimated energy production for the hour
// containing now.
func (b *EstimateBundle) EnergyCurrentHour() int {
	return b.energyHourAt(b.Now())
}

func (b *EstimateBundle) energyHourAt(now time.Time) int {
	start := floorHour(now)
	return intervalSum(b.WhPeriod, start, start.Add(time.Hour))
}

// SumEnergyProduction returns the estimated energy over the next periodHours
// full hours, starting from the end of the current hour.
func (b *EstimateBundle) SumEnergyProduction(periodHours int) int {
	return b.sumEnergyAt(b.Now(), periodHours)
}

func (b *EstimateBundle) sumEnergyAt(now time.Time, periodHours int) int {
	start := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 59, 59, 0, now.Location())
	return intervalSum(b.WhPeriod, start, start.Add(time.Duration(periodHours)*time.Hour))
}

// intervalSum sums the values of points with begin <= t < end. The series is
// ordered, so the scan stops at the first point past the interval.
func intervalSum(points []PowerPoint, begin, end time.Time) int {
	total := 0
	for _, p := range points {
		if p.Time.Before(begin) {
			continue
		}
		if !p.Time.Before(end) {
			break
		}
		total += p.Watts
	}
	return total
}
