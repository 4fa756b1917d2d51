package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/emusa/energymon/repository"
)

// tableRowLimit caps how many raw readings are tabulated at the end of the
// PDF; the full data lives in the CSV export.
const tableRowLimit = 50

// WritePDF renders the report: header, summary statistics, an active power
// chart over the window and the most recent readings.
func WritePDF(path, title string, summary Summary, readings []repository.StoredReading) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Window: %s to %s",
		summary.Period.Start.Format("2006-01-02 15:04"),
		summary.Period.End.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range summaryLines(summary) {
		pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	chart, err := powerChartPNG(readings)
	if err != nil {
		return fmt.Errorf("render power chart: %w", err)
	}
	if chart != nil {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("power-chart", opts, chart)
		pdf.ImageOptions("power-chart", 10, pdf.GetY(), 190, 0, true, opts, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Readings (last %d)", tableRowLimit), "", 1, "L", false, 0, "")
	pdf.SetFont("Courier", "", 7)
	tail := readings
	if len(tail) > tableRowLimit {
		tail = tail[len(tail)-tableRowLimit:]
	}
	for _, r := range tail {
		line := fmt.Sprintf("%s | LL avg=%s V | kW=%s | kWh A=%s | FP=%s",
			r.Time.Format("15:04:05"),
			cellOf3(r.VoltageLineRS, r.VoltageLineST, r.VoltageLineTR),
			cell(r.PowerTotalActive),
			cell(r.EnergyChannelA),
			cell(r.PowerFactor))
		pdf.CellFormat(0, 3.5, line, "", 1, "L", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func summaryLines(s Summary) []string {
	stat := func(name, unit string, fs FieldStats) string {
		if fs.Samples == 0 {
			return fmt.Sprintf("%s: no data", name)
		}
		return fmt.Sprintf("%s: mean %.2f / min %.2f / max %.2f %s (%d samples)",
			name, fs.Mean, fs.Min, fs.Max, unit, fs.Samples)
	}
	lines := []string{
		fmt.Sprintf("Rows in window: %d", s.Count),
		stat("Active power", "kW", s.PowerActive),
		stat("Voltage R-S", "V", s.VoltageLineRS),
		stat("Voltage S-T", "V", s.VoltageLineST),
		stat("Voltage T-R", "V", s.VoltageLineTR),
		stat("Frequency", "Hz", s.Frequency),
		stat("Power factor", "", s.PowerFactor),
		fmt.Sprintf("Energy consumed (channel A): %.2f kWh", s.EnergyDeltaA),
		fmt.Sprintf("Energy anomalies flagged: %d", s.AnomalyCount),
	}
	if s.PeakMeanPower > 0 {
		lines = append(lines, fmt.Sprintf("Peak consumption: %.2f kW mean between %s and %s",
			s.PeakMeanPower,
			s.PeakWindow.Start.Format("15:04"),
			s.PeakWindow.End.Format("15:04")))
	}
	return lines
}

// powerChartPNG plots active power over the window. Returns nil when there
// is nothing to plot.
func powerChartPNG(readings []repository.StoredReading) (*bytes.Buffer, error) {
	var xys plotter.XYs
	for _, r := range readings {
		if r.PowerTotalActive == nil {
			continue
		}
		xys = append(xys, plotter.XY{
			X: float64(r.Time.Unix()),
			Y: *r.PowerTotalActive,
		})
	}
	if len(xys) == 0 {
		return nil, nil
	}

	p := plot.New()
	p.Title.Text = "Active power"
	p.Y.Label.Text = "kW"
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04"}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	p.Add(line)
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(18*vg.Centimeter, 6*vg.Centimeter, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}

func cellOf3(a, b, c *float64) string {
	sum := 0.0
	n := 0
	for _, v := range []*float64{a, b, c} {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%.1f", sum/float64(n))
}
