package dashboard

import (
	"fmt"
	"io"

	"cuacadesa/internal/models"
	"cuacadesa/internal/series"
)

// WriteForecastCSV exports the forecast table of one panel as date,value
func WriteForecastCSV(w io.Writer, p *models.Panel, precision int) error {
	return series.WritePoints(w, p.Forecast, precision)
}

// WriteCombinedCSV exports every joined forecast day as
// date,rainfall,windspeed
func WriteCombinedCSV(w io.Writer, d *models.Dashboard, precision int) error {
	rain, ok := d.Panels[models.Rainfall]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariable, models.Rainfall)
	}
	wind, ok := d.Panels[models.WindSpeed]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariable, models.WindSpeed)
	}

	joined, err := series.Join(rain.Forecast, wind.Forecast, 0)
	if err != nil {
		return err
	}
	return series.WriteJoined(w, joined.Days(), precision)
}
