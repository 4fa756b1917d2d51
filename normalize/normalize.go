// Package normalize converts one raw polling sample into the canonical
// Reading record. It is a pure function of its inputs: no I/O, no clock, no
// shared state, so the fallback and anomaly policies are testable without a
// meter.
package normalize

import (
	"time"

	"github.com/emusa/energymon/telemetry"
)

// scaleFactors maps each quantity to the factor that turns the raw register
// value into engineering units. The CH30 publishes IEEE floats already in
// engineering units, so the factors are unity; meters that publish scaled
// integers get their factor here.
var scaleFactors = map[string]float64{
	telemetry.KeyVoltagePhA:       1,
	telemetry.KeyVoltagePhB:       1,
	telemetry.KeyVoltagePhC:       1,
	telemetry.KeyVoltageLineRS:    1,
	telemetry.KeyVoltageLineST:    1,
	telemetry.KeyVoltageLineTR:    1,
	telemetry.KeyCurrentPhA:       1,
	telemetry.KeyCurrentPhB:       1,
	telemetry.KeyCurrentPhC:       1,
	telemetry.KeyPowerTotalActive: 1,
	telemetry.KeyPowerFactor:      1,
	telemetry.KeyFrequency:        1,
	telemetry.KeyEnergyChannelA:   1,
	telemetry.KeyEnergyChannelB:   1,
}

// Normalize builds a Reading from a raw sample.
//
// Policies:
//   - every quantity is scaled to engineering units;
//   - a line-to-line voltage missing from the sample is derived as the mean
//     of the other two iff exactly one is missing, otherwise it is marked
//     unavailable (never zero, never carried over from `previous`);
//   - each accumulated energy channel is flagged anomalous iff both the
//     current and previous readings have it and the counter decreased.
//
// Normalize never fails: downstream consumers always receive a complete
// record, possibly with unavailable fields.
func Normalize(sample telemetry.RawSample, previous *telemetry.Reading, at time.Time) telemetry.Reading {
	r := telemetry.Reading{
		Time: at,

		VoltagePhA: take(sample, telemetry.KeyVoltagePhA),
		VoltagePhB: take(sample, telemetry.KeyVoltagePhB),
		VoltagePhC: take(sample, telemetry.KeyVoltagePhC),

		VoltageLineRS: take(sample, telemetry.KeyVoltageLineRS),
		VoltageLineST: take(sample, telemetry.KeyVoltageLineST),
		VoltageLineTR: take(sample, telemetry.KeyVoltageLineTR),

		CurrentPhA: take(sample, telemetry.KeyCurrentPhA),
		CurrentPhB: take(sample, telemetry.KeyCurrentPhB),
		CurrentPhC: take(sample, telemetry.KeyCurrentPhC),

		PowerTotalActive: take(sample, telemetry.KeyPowerTotalActive),
		PowerFactor:      take(sample, telemetry.KeyPowerFactor),
		Frequency:        take(sample, telemetry.KeyFrequency),

		EnergyChannelA: take(sample, telemetry.KeyEnergyChannelA),
		EnergyChannelB: take(sample, telemetry.KeyEnergyChannelB),
	}

	deriveLineVoltages(&r)

	if previous != nil {
		flagEnergyDecrease(&r.EnergyChannelA, previous.EnergyChannelA)
		flagEnergyDecrease(&r.EnergyChannelB, previous.EnergyChannelB)
	}

	return r
}

// take extracts and scales one quantity from the sample.
func take(sample telemetry.RawSample, key string) telemetry.Measurement {
	raw, ok := sample[key]
	if !ok {
		return telemetry.Unavailable()
	}
	factor, ok := scaleFactors[key]
	if !ok {
		factor = 1
	}
	return telemetry.Available(raw * factor)
}

// deriveLineVoltages fills a single missing line-to-line voltage with the
// mean of the other two. With two or more missing there is nothing sound to
// derive from, so they stay unavailable.
func deriveLineVoltages(r *telemetry.Reading) {
	fields := []*telemetry.Measurement{&r.VoltageLineRS, &r.VoltageLineST, &r.VoltageLineTR}

	var present []*telemetry.Measurement
	var missing []*telemetry.Measurement
	for _, f := range fields {
		if f.Valid {
			present = append(present, f)
		} else {
			missing = append(missing, f)
		}
	}

	if len(missing) != 1 {
		return
	}
	*missing[0] = telemetry.Available((present[0].Value + present[1].Value) / 2)
}

// flagEnergyDecrease marks an accumulated energy counter anomalous when it
// moves backwards, which indicates a counter reset or device fault.
func flagEnergyDecrease(current *telemetry.Measurement, previous telemetry.Measurement) {
	if current.Valid && previous.Valid && current.Value < previous.Value {
		current.Anomalous = true
	}
}
