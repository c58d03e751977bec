package advisor

import "cuacadesa/internal/models"

const (
	veryWetRain   = 250.0
	veryDryRain   = 20.0
	veryWindyDays = 10
)

// Status codes
const (
	StatusVeryWet   = "very_wet"
	StatusVeryDry   = "very_dry"
	StatusVeryWindy = "very_windy"
	StatusNormal    = "normal"
)

var (
	statusVeryWet   = models.Status{Code: StatusVeryWet, Label: "Sangat basah", Severity: models.SeverityError}
	statusVeryDry   = models.Status{Code: StatusVeryDry, Label: "Sangat kering", Severity: models.SeverityError}
	statusVeryWindy = models.Status{Code: StatusVeryWindy, Label: "Sangat berangin", Severity: models.SeverityWarning}
	statusNormal    = models.Status{Code: StatusNormal, Label: "Normal", Severity: models.SeveritySuccess}
)

// status picks the first matching banner in fixed priority order. An empty
// long-term window totals 0 mm and is therefore very dry.
func status(s windowSummary) models.Status {
	switch {
	case s.rainTotal > veryWetRain:
		return statusVeryWet
	case s.rainTotal < veryDryRain:
		return statusVeryDry
	case s.windyDays > veryWindyDays:
		return statusVeryWindy
	default:
		return statusNormal
	}
}

// StatusCodes lists every status code in priority order
func StatusCodes() []string {
	return []string{StatusVeryWet, StatusVeryDry, StatusVeryWindy, StatusNormal}
}
