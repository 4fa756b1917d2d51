package registermap

import (
	"github.com/emusa/energymon/modbusaccess"
	"github.com/emusa/energymon/telemetry"
)

// Default returns the built-in KRON CH30 register map, used when no map file
// is configured. The CH30 publishes all quantities as IEEE floats on input
// registers. Per-phase currents are not in the device's stock register set;
// they arrive only from the simulator or from a custom map file for meters
// that expose them.
func Default() *Map {
	m, err := New([]Descriptor{
		{Name: telemetry.KeyVoltagePhA, FunctionCode: 4, Address: 0, DataKind: modbusaccess.F32, ByteOrder: modbusaccess.ABCD},
		{Name: telemetry.KeyVoltagePhB, FunctionCode: 4, Address: 2, DataKind: modbusaccess.F32, ByteOrder: modbusaccess.ABCD},
		{Name: telemetry.KeyVoltagePhC, FunctionCode: 4, Address: 4, DataKind: modbusaccess.F32, ByteOrder: modbusaccess.ABCD},
		{Name: telemetry.KeyVoltageLineRS, FunctionCode: 4, Address: 6, DataKind: modbusaccess.F32, ByteOrder: modbusaccess.ABCD},
		{Name: telemetry.KeyVoltageLineST, FunctionCode: 4, Address: 8, DataKind: modbusaccess.F32, ByteOrder: modbusaccess.ABCD},
		{Name: telemetry.KeyVoltageLineTR, FunctionCode: 4, Address: 10, DataKind: modbusaccess.F32, ByteOrder: modbusaccess.ABCD},
		{Name: telemetry.KeyPowerTotalActive, FunctionCode: 4, Address: 20, DataKind: modbusaccess.F32, ByteOrder: modbusaccess.ABCD},
		{Name: telemetry.KeyEnergyChannelA, FunctionCode: 4, Address: 40, DataKind: modbusaccess.F32, ByteOrder: modbusaccess.ABCD},
		{Name: telemetry.KeyEnergyChannelB, FunctionCode: 4, Address: 42, DataKind: modbusaccess.F32, ByteOrder: modbusaccess.ABCD},
		{Name: telemetry.KeyFrequency, FunctionCode: 4, Address: 60, DataKind: modbusaccess.F32, ByteOrder: modbusaccess.ABCD},
		{Name: telemetry.KeyPowerFactor, FunctionCode: 4, Address: 70, DataKind: modbusaccess.F32, ByteOrder: modbusaccess.ABCD},
	})
	if err != nil {
		// the built-in map is a compile-time constant in all but syntax
		panic(err)
	}
	return m
}
