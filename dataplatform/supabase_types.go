package dataplatform

import (
	"time"

	"github.com/google/uuid"

	"github.com/emusa/energymon/repository"
)

// supabaseReading holds the json encoding schema for a meter reading in
// supabase. Pointer fields carry the unavailable markers through as NULLs.
type supabaseReading struct {
	Time    time.Time `json:"time"`
	MeterID uuid.UUID `json:"meter_id"`

	VoltagePhA *float64 `json:"voltage_l1"`
	VoltagePhB *float64 `json:"voltage_l2"`
	VoltagePhC *float64 `json:"voltage_l3"`

	VoltageLineRS      *float64 `json:"voltage_ll_rs"`
	VoltageLineST      *float64 `json:"voltage_ll_st"`
	VoltageLineTR      *float64 `json:"voltage_ll_tr"`
	VoltageLineAverage *float64 `json:"voltage_line_average"`

	CurrentPhA *float64 `json:"current_l1"`
	CurrentPhB *float64 `json:"current_l2"`
	CurrentPhC *float64 `json:"current_l3"`

	PowerTotalActive *float64 `json:"power_active_kw"`
	PowerFactor      *float64 `json:"power_factor"`
	Frequency        *float64 `json:"frequency"`

	EnergyChannelA          *float64 `json:"energy_kwh_a"`
	EnergyChannelB          *float64 `json:"energy_kwh_b"`
	EnergyChannelAAnomalous bool     `json:"energy_kwh_a_anomalous"`
	EnergyChannelBAnomalous bool     `json:"energy_kwh_b_anomalous"`
}

func convertReadings(readings []repository.StoredReading) []supabaseReading {
	var supabaseReadings []supabaseReading
	for _, r := range readings {
		var lineAverage *float64
		if avg := r.Reading().VoltageLineAverage(); avg.Valid {
			v := avg.Value
			lineAverage = &v
		}
		supabaseReadings = append(supabaseReadings, supabaseReading{
			Time:    r.Time,
			MeterID: r.MeterID,

			VoltagePhA: r.VoltagePhA,
			VoltagePhB: r.VoltagePhB,
			VoltagePhC: r.VoltagePhC,

			VoltageLineRS:      r.VoltageLineRS,
			VoltageLineST:      r.VoltageLineST,
			VoltageLineTR:      r.VoltageLineTR,
			VoltageLineAverage: lineAverage,

			CurrentPhA: r.CurrentPhA,
			CurrentPhB: r.CurrentPhB,
			CurrentPhC: r.CurrentPhC,

			PowerTotalActive: r.PowerTotalActive,
			PowerFactor:      r.PowerFactor,
			Frequency:        r.Frequency,

			EnergyChannelA:          r.EnergyChannelA,
			EnergyChannelB:          r.EnergyChannelB,
			EnergyChannelAAnomalous: r.EnergyChannelAAnomalous,
			EnergyChannelBAnomalous: r.EnergyChannelBAnomalous,
		})
	}
	return supabaseReadings
}
