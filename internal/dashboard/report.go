package dashboard

import (
	"fmt"
	"io"
	"strings"

	"cuacadesa/internal/models"
	"cuacadesa/internal/series"
)

// WriteReport prints a plain text summary of a dashboard
func WriteReport(w io.Writer, d *models.Dashboard) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (%s)\n", d.Site, d.GeneratedAt.Format("2006-01-02 15:04 MST"))
	for _, name := range []string{models.Rainfall, models.WindSpeed} {
		p, ok := d.Panels[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  %s: %.2f %s on %s, %d forecast days from %s\n",
			p.Title, p.LastValue, p.Unit, p.LastDate.Format(series.DateLayout), len(p.Forecast), p.Provider)
	}
	for _, n := range d.Notices {
		fmt.Fprintf(&b, "! %s\n", n)
	}

	if in := d.Insight; in != nil {
		fmt.Fprintf(&b, "\nStatus: %s (%s)  %s - %s\n", in.Status.Label, in.Status.Severity,
			in.PeriodStart.Format(series.DateLayout), in.PeriodEnd.Format(series.DateLayout))
		section(&b, "Tani, 7 hari", in.Tani.ShortTerm)
		section(&b, "Tani, jangka panjang", in.Tani.LongTerm)
		section(&b, "Ternak, 7 hari", in.Ternak.ShortTerm)
		section(&b, "Ternak, jangka panjang", in.Ternak.LongTerm)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title string, recs []models.Recommendation) {
	if len(recs) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, r := range recs {
		fmt.Fprintf(b, "  - %s\n", r.Message)
	}
}
