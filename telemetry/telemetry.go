package telemetry

import (
	"time"
)

// Measurement is a single physical quantity pulled from the meter.
// Valid is false when the device did not return the quantity this cycle and
// no fallback could derive it - consumers must treat the value as absent
// rather than zero.
type Measurement struct {
	Value     float64
	Valid     bool
	Anomalous bool
}

// Available returns a valid, non-anomalous measurement.
func Available(value float64) Measurement {
	return Measurement{Value: value, Valid: true}
}

// Unavailable is the explicit "no data" marker.
func Unavailable() Measurement {
	return Measurement{}
}

// Float returns the value and whether it is usable.
func (m Measurement) Float() (float64, bool) {
	return m.Value, m.Valid
}

// RawSample holds the decoded register values of one polling cycle, keyed by
// quantity name. Quantities the device did not return are simply absent.
type RawSample map[string]float64

// Reading is the canonical record handed to every downstream consumer
// (storage, live dashboard, report generator). It is constructed once per
// polling cycle and never mutated afterwards.
type Reading struct {
	Time time.Time

	VoltagePhA Measurement // phase-to-neutral L1, volts
	VoltagePhB Measurement // phase-to-neutral L2, volts
	VoltagePhC Measurement // phase-to-neutral L3, volts

	VoltageLineRS Measurement // line-to-line R-S, volts
	VoltageLineST Measurement // line-to-line S-T, volts
	VoltageLineTR Measurement // line-to-line T-R, volts

	CurrentPhA Measurement // amps
	CurrentPhB Measurement
	CurrentPhC Measurement

	PowerTotalActive Measurement // kW
	PowerFactor      Measurement // dimensionless
	Frequency        Measurement // Hz

	EnergyChannelA Measurement // accumulated kWh, channel A
	EnergyChannelB Measurement // accumulated kWh, channel B
}

// VoltageLineAverage is the mean of the available line-to-line voltages.
func (r Reading) VoltageLineAverage() Measurement {
	sum := 0.0
	n := 0
	for _, m := range []Measurement{r.VoltageLineRS, r.VoltageLineST, r.VoltageLineTR} {
		if m.Valid {
			sum += m.Value
			n++
		}
	}
	if n == 0 {
		return Unavailable()
	}
	return Available(sum / float64(n))
}
