package forecast

import "time"

// CovariateDim is the number of calendar covariates per day
const CovariateDim = 2

// GenerateCovariates returns the calendar month and day of month for n
// consecutive days starting at start
func GenerateCovariates(start time.Time, n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		d := start.AddDate(0, 0, i)
		out[i] = []float64{float64(d.Month()), float64(d.Day())}
	}
	return out
}
