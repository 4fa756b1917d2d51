package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/emusa/energymon/repository"
)

// csvHeader matches the column layout consumed by the Power BI export.
var csvHeader = []string{
	"time",
	"voltage_l1", "voltage_l2", "voltage_l3",
	"voltage_ll_rs", "voltage_ll_st", "voltage_ll_tr",
	"current_l1", "current_l2", "current_l3",
	"power_active_kw", "power_factor", "frequency",
	"energy_kwh_a", "energy_kwh_b",
}

// WriteCSV streams the readings as CSV. Unavailable measurements become
// empty cells, never zeroes.
func WriteCSV(w io.Writer, readings []repository.StoredReading) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range readings {
		record := []string{
			r.Time.Format(time.RFC3339),
			cell(r.VoltagePhA), cell(r.VoltagePhB), cell(r.VoltagePhC),
			cell(r.VoltageLineRS), cell(r.VoltageLineST), cell(r.VoltageLineTR),
			cell(r.CurrentPhA), cell(r.CurrentPhB), cell(r.CurrentPhC),
			cell(r.PowerTotalActive), cell(r.PowerFactor), cell(r.Frequency),
			cell(r.EnergyChannelA), cell(r.EnergyChannelB),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func cell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}
