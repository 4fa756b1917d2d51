// Package report computes periodic statistics over persisted readings and
// renders them as CSV exports and PDF reports. It only ever reads from the
// repository; acquisition is not involved.
package report

import (
	"math"
	"time"

	"github.com/emusa/energymon/repository"
	timeutils "github.com/emusa/energymon/time_utils"
)

// peakWindowLength is the sliding window used to locate the
// peak-consumption period within a report.
const peakWindowLength = 15 * time.Minute

// FieldStats are the aggregate statistics of one quantity over the report
// window. Samples counts only rows where the quantity was available.
type FieldStats struct {
	Mean    float64
	Min     float64
	Max     float64
	Samples int
}

// Summary is the statistical digest of one report window.
type Summary struct {
	Period timeutils.Period
	Count  int // rows in the window

	VoltageLineRS FieldStats
	VoltageLineST FieldStats
	VoltageLineTR FieldStats
	PowerActive   FieldStats
	Frequency     FieldStats
	PowerFactor   FieldStats

	// EnergyDeltaA is the channel A consumption over the window (last minus
	// first available counter value).
	EnergyDeltaA float64

	// AnomalyCount is how many rows carried an energy anomaly flag.
	AnomalyCount int

	// PeakWindow is the sliding window with the highest mean active power.
	PeakWindow    timeutils.Period
	PeakMeanPower float64
}

// Summarize computes the digest for readings already restricted to the
// report window, ordered oldest first.
func Summarize(period timeutils.Period, readings []repository.StoredReading) Summary {
	s := Summary{Period: period, Count: len(readings)}

	var rs, st, tr, power, freq, fp accumulator
	var firstEnergyA, lastEnergyA *float64

	for _, r := range readings {
		rs.add(r.VoltageLineRS)
		st.add(r.VoltageLineST)
		tr.add(r.VoltageLineTR)
		power.add(r.PowerTotalActive)
		freq.add(r.Frequency)
		fp.add(r.PowerFactor)

		if r.EnergyChannelA != nil {
			if firstEnergyA == nil {
				firstEnergyA = r.EnergyChannelA
			}
			lastEnergyA = r.EnergyChannelA
		}
		if r.EnergyChannelAAnomalous || r.EnergyChannelBAnomalous {
			s.AnomalyCount++
		}
	}

	s.VoltageLineRS = rs.stats()
	s.VoltageLineST = st.stats()
	s.VoltageLineTR = tr.stats()
	s.PowerActive = power.stats()
	s.Frequency = freq.stats()
	s.PowerFactor = fp.stats()

	if firstEnergyA != nil && lastEnergyA != nil {
		s.EnergyDeltaA = *lastEnergyA - *firstEnergyA
	}

	s.PeakWindow, s.PeakMeanPower = peakConsumption(readings)

	return s
}

// peakConsumption slides a fixed window over the readings and returns the
// window with the highest mean active power.
func peakConsumption(readings []repository.StoredReading) (timeutils.Period, float64) {
	bestMean := math.Inf(-1)
	var best timeutils.Period

	start := 0
	var sum float64
	var n int

	for end := 0; end < len(readings); end++ {
		if readings[end].PowerTotalActive != nil {
			sum += *readings[end].PowerTotalActive
			n++
		}
		for readings[end].Time.Sub(readings[start].Time) > peakWindowLength {
			if readings[start].PowerTotalActive != nil {
				sum -= *readings[start].PowerTotalActive
				n--
			}
			start++
		}
		if n > 0 {
			mean := sum / float64(n)
			if mean > bestMean {
				bestMean = mean
				best = timeutils.Period{
					Start: readings[start].Time,
					End:   readings[end].Time,
				}
			}
		}
	}

	if math.IsInf(bestMean, -1) {
		return timeutils.Period{}, 0
	}
	return best, bestMean
}

// accumulator builds FieldStats incrementally over nullable columns.
type accumulator struct {
	sum   float64
	min   float64
	max   float64
	count int
}

func (a *accumulator) add(v *float64) {
	if v == nil {
		return
	}
	if a.count == 0 {
		a.min, a.max = *v, *v
	} else {
		a.min = math.Min(a.min, *v)
		a.max = math.Max(a.max, *v)
	}
	a.sum += *v
	a.count++
}

func (a *accumulator) stats() FieldStats {
	if a.count == 0 {
		return FieldStats{}
	}
	return FieldStats{
		Mean:    a.sum / float64(a.count),
		Min:     a.min,
		Max:     a.max,
		Samples: a.count,
	}
}
