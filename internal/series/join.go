package series

import (
	"errors"

	"cuacadesa/internal/models"
)

// ShortTermDays is the length of the short-term advisory window
const ShortTermDays = 7

// ErrNoOverlap is returned when the rainfall and wind forecasts share no date
var ErrNoOverlap = errors.New("rainfall and wind forecasts have no overlapping dates")

// Join inner-joins the rainfall and wind forecasts on date and splits the
// result into the first ShortTermDays days and the long-term remainder.
// longTermDays limits the long-term window; 0 keeps all remaining days.
// Inputs are not modified.
func Join(rain, wind []models.ForecastPoint, longTermDays int) (models.JoinedForecast, error) {
	windByDay := make(map[int64]float64, len(wind))
	for _, p := range wind {
		key := Day(p.Date).Unix()
		if _, seen := windByDay[key]; !seen {
			windByDay[key] = p.Value
		}
	}

	var days []models.JoinedDay
	used := make(map[int64]bool, len(rain))
	for _, p := range SortPoints(rain) {
		d := Day(p.Date)
		key := d.Unix()
		w, ok := windByDay[key]
		if !ok || used[key] {
			continue
		}
		used[key] = true
		days = append(days, models.JoinedDay{Date: d, Rainfall: p.Value, WindSpeed: w})
	}

	if len(days) == 0 {
		return models.JoinedForecast{}, ErrNoOverlap
	}

	short := days
	var long []models.JoinedDay
	if len(days) > ShortTermDays {
		short = days[:ShortTermDays]
		long = days[ShortTermDays:]
		if longTermDays > 0 && len(long) > longTermDays {
			long = long[:longTermDays]
		}
	}

	return models.JoinedForecast{ShortTerm: short, LongTerm: long}, nil
}
