package advisor

import (
	"fmt"
	"strings"
	"time"

	"cuacadesa/internal/models"
)

// Short-term thresholds (mm per day, m/s)
const (
	sprayMaxRain     = 1.0
	sprayMaxWind     = 5.0
	maxSprayDays     = 3
	heavyRain        = 5.0
	wetWeekDays      = 4
	stakeWind        = 7.0
	soakedForageRain = 10.0
	bloatRiskDays    = 3
	barnWind         = 6.0
)

// Long-term thresholds
const (
	wetPhaseRain     = 200.0
	dryPhaseRain     = 30.0
	forageRain       = 100.0
	strongWind       = 6.0
	lodgingWindyDays = 7
	pinkEyeWindyDays = 10
)

// Rule codes
const (
	CodeSprayWindow     = "spray_window"
	CodeStopSpraying    = "stop_spraying"
	CodeDelayFertilizer = "delay_fertilizer"
	CodeIrrigation      = "mandatory_irrigation"
	CodeStakePlants     = "stake_plants"
	CodeBloatRisk       = "bloat_risk"
	CodeFeedSafe        = "feed_safe"
	CodeCloseBarn       = "close_barn"
	CodeWetPhase        = "wet_phase"
	CodeDryPhase        = "dry_phase"
	CodeLodgingRisk     = "lodging_risk"
	CodeForageAbundant  = "forage_abundant"
	CodeStockDepletion  = "stock_depletion"
	CodePinkEye         = "pink_eye"
)

var dayNames = [...]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}

// DayName formats a date as the local weekday name with day/month
func DayName(d time.Time) string {
	return fmt.Sprintf("%s (%02d/%02d)", dayNames[d.Weekday()], d.Day(), int(d.Month()))
}

func rec(code, format string, args ...interface{}) models.Recommendation {
	return models.Recommendation{Code: code, Message: fmt.Sprintf(format, args...)}
}

func shortTermAdvice(days []models.JoinedDay) (tani, ternak []models.Recommendation) {
	var sprayDays []string
	heavyRainDays, soakedDays := 0, 0
	stakeWindy, barnWindy := false, false

	for _, d := range days {
		if d.Rainfall < sprayMaxRain && d.WindSpeed < sprayMaxWind && len(sprayDays) < maxSprayDays {
			sprayDays = append(sprayDays, DayName(d.Date))
		}
		if d.Rainfall > heavyRain {
			heavyRainDays++
		}
		if d.Rainfall > soakedForageRain {
			soakedDays++
		}
		if d.WindSpeed > stakeWind {
			stakeWindy = true
		}
		if d.WindSpeed > barnWind {
			barnWindy = true
		}
	}

	if len(sprayDays) > 0 {
		tani = append(tani, rec(CodeSprayWindow,
			"Waktu terbaik menyemprot pestisida: %s (hujan < %.0f mm, angin < %.0f m/s).",
			strings.Join(sprayDays, ", "), sprayMaxRain, sprayMaxWind))
	} else {
		tani = append(tani, rec(CodeStopSpraying,
			"Tidak ada hari aman untuk menyemprot minggu ini. Hentikan penyemprotan pestisida."))
	}

	if heavyRainDays >= wetWeekDays {
		tani = append(tani, rec(CodeDelayFertilizer,
			"Hujan > %.0f mm selama %d hari. Tunda pemupukan sebar karena pupuk mudah tercuci, waspadai serangan jamur.",
			heavyRain, heavyRainDays))
	}
	if heavyRainDays == 0 {
		tani = append(tani, rec(CodeIrrigation,
			"Tidak ada hujan berarti minggu ini. Irigasi wajib dilakukan."))
	}
	if stakeWindy {
		tani = append(tani, rec(CodeStakePlants,
			"Angin > %.0f m/s diprediksi. Pasang ajir dan ikat tanaman agar tidak roboh.", stakeWind))
	}

	if soakedDays >= bloatRiskDays {
		ternak = append(ternak, rec(CodeBloatRisk,
			"Hujan > %.0f mm selama %d hari. Risiko kembung: layukan rumput sebelum diberikan dan tambahkan suplemen vitamin.",
			soakedForageRain, soakedDays))
	} else {
		ternak = append(ternak, rec(CodeFeedSafe, "Pakan hijauan aman diberikan minggu ini."))
	}
	if barnWindy {
		ternak = append(ternak, rec(CodeCloseBarn,
			"Angin > %.0f m/s diprediksi. Tutup kandang atau pasang tirai angin.", barnWind))
	}

	return tani, ternak
}

// windowSummary aggregates the long-term window
type windowSummary struct {
	days      int
	rainTotal float64
	windyDays int
}

func summarize(days []models.JoinedDay) windowSummary {
	s := windowSummary{days: len(days)}
	for _, d := range days {
		s.rainTotal += d.Rainfall
		if d.WindSpeed > strongWind {
			s.windyDays++
		}
	}
	return s
}

func longTermAdvice(s windowSummary, extended bool) (tani, ternak []models.Recommendation) {
	if s.rainTotal > wetPhaseRain {
		tani = append(tani, rec(CodeWetPhase,
			"Fase basah: total hujan %.0f mm dalam %d hari ke depan. Perbaiki saluran drainase.", s.rainTotal, s.days))
	}
	if s.rainTotal < dryPhaseRain {
		tani = append(tani, rec(CodeDryPhase,
			"Fase kering: total hujan hanya %.0f mm dalam %d hari ke depan. Siapkan mulsa untuk menjaga kelembapan tanah.", s.rainTotal, s.days))
	}
	if s.windyDays > lodgingWindyDays {
		tani = append(tani, rec(CodeLodgingRisk,
			"Angin > %.0f m/s selama %d hari. Waspadai tanaman rebah.", strongWind, s.windyDays))
	}

	if !extended {
		return tani, ternak
	}

	if s.rainTotal > forageRain {
		ternak = append(ternak, rec(CodeForageAbundant,
			"Hijauan pakan melimpah (hujan %.0f mm). Manfaatkan untuk membuat silase.", s.rainTotal))
	}
	if s.rainTotal < dryPhaseRain {
		ternak = append(ternak, rec(CodeStockDepletion,
			"Hujan sedikit, stok hijauan akan menipis. Siapkan cadangan pakan kering."))
	}
	if s.windyDays > pinkEyeWindyDays {
		ternak = append(ternak, rec(CodePinkEye,
			"Angin > %.0f m/s selama %d hari. Waspadai penyakit mata merah (pink eye) dan perbaiki dinding kandang.", strongWind, s.windyDays))
	}

	return tani, ternak
}
