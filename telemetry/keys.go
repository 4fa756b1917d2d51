package telemetry

// Canonical quantity names shared by the register map, the source adapters
// and the normalizer. The names match the registers of the KRON CH30 map.
const (
	KeyVoltagePhA = "voltage_l1"
	KeyVoltagePhB = "voltage_l2"
	KeyVoltagePhC = "voltage_l3"

	KeyVoltageLineRS = "voltage_ll_rs"
	KeyVoltageLineST = "voltage_ll_st"
	KeyVoltageLineTR = "voltage_ll_tr"

	KeyCurrentPhA = "current_l1"
	KeyCurrentPhB = "current_l2"
	KeyCurrentPhC = "current_l3"

	KeyPowerTotalActive = "power_active_kw"
	KeyPowerFactor      = "power_factor"
	KeyFrequency        = "frequency"

	KeyEnergyChannelA = "energy_kwh_a"
	KeyEnergyChannelB = "energy_kwh_b"
)
