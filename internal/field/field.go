// Package field defines the closed set of battery fields the poller knows,
// their upstream register-table names and the attribute names the
// aggregation layer consumes.
package field

// ID identifies one logical field.
type ID uint8

const (
	Invalid ID = iota

	// ---- identity ----
	ManufacturerID
	ProtocolVersion
	HardwareName
	HardwareVersion
	SerialNumber
	SoftwareVersion

	// ---- settings ----
	CellCount
	Capacity
	MaxChargeCurrent
	MaxDischargeCurrent
	MaxCellVoltage
	MinCellVoltage

	// ---- status ----
	Voltage
	Current
	SOC
	RemainingCapacity
	Temperature1
	Temperature2
	Temperature3
	Temperature4
	TemperatureMOS
	FeedbackShuntCurrent
	ChargeFET
	DischargeFET

	// ---- protection ----
	LowVoltageAlarm
	HighVoltageAlarm
	LowCellVoltageAlarm
	HighCellVoltageAlarm
	LowSOCAlarm
	HighChargeCurrentAlarm
	HighDischargeCurrentAlarm
	TemperatureAlarm

	// ---- per cell ----
	CellVoltage
	CellBalance

	count
)

type meta struct {
	name      string // upstream register-table name
	attribute string // aggregation attribute
	cell      bool
}

var table = [count]meta{
	ManufacturerID:  {"Manufacturer_ID", "manufacturer_id", false},
	ProtocolVersion: {"Modbus_Version", "modbus_version", false},
	HardwareName:    {"Hardware_Name", "hardware_name", false},
	HardwareVersion: {"Hardware_Version", "hardware_version", false},
	SerialNumber:    {"Serial_Number", "serial_number", false},
	SoftwareVersion: {"SW_Version", "sw_version", false},

	CellCount:           {"Number_of_Cells", "cell_count", false},
	Capacity:            {"Capacity", "capacity", false},
	MaxChargeCurrent:    {"Max_Charge_Current", "max_battery_charge_current", false},
	MaxDischargeCurrent: {"Max_Discharge_Current", "max_battery_discharge_current", false},
	MaxCellVoltage:      {"Max_Cell_Voltage", "max_battery_voltage_bms", false},
	MinCellVoltage:      {"Min_Cell_Voltage", "min_battery_voltage_bms", false},

	Voltage:              {"Battery_Voltage", "voltage", false},
	Current:              {"Battery_Current", "current", false},
	SOC:                  {"Battery_SOC", "soc", false},
	RemainingCapacity:    {"Remaining_Capacity", "remaining_capacity", false},
	Temperature1:         {"Temperature_Sensor_1", "temp1", false},
	Temperature2:         {"Temperature_Sensor_2", "temp2", false},
	Temperature3:         {"Temperature_Sensor_3", "temp3", false},
	Temperature4:         {"Temperature_Sensor_4", "temp4", false},
	TemperatureMOS:       {"MOSFET_Temperature", "temp_mos", false},
	FeedbackShuntCurrent: {"Feedback_Shunt_Current", "feedback_shunt_current", false},
	ChargeFET:            {"Charge_FET", "charge_fet", false},
	DischargeFET:         {"Discharge_FET", "discharge_fet", false},

	LowVoltageAlarm:           {"Low_Voltage_Alarm", "protection.low_voltage", false},
	HighVoltageAlarm:          {"High_Voltage_Alarm", "protection.high_voltage", false},
	LowCellVoltageAlarm:       {"Low_Cell_Voltage_Alarm", "protection.low_cell_voltage", false},
	HighCellVoltageAlarm:      {"High_Cell_Voltage_Alarm", "protection.high_cell_voltage", false},
	LowSOCAlarm:               {"Low_SOC_Alarm", "protection.low_soc", false},
	HighChargeCurrentAlarm:    {"High_Charge_Current_Alarm", "protection.high_charge_current", false},
	HighDischargeCurrentAlarm: {"High_Discharge_Current_Alarm", "protection.high_discharge_current", false},
	TemperatureAlarm:          {"Temperature_Alarm", "protection.high_temperature", false},

	CellVoltage: {"Cell_Voltage", "voltage", true},
	CellBalance: {"Cell_Balance_Status", "balance", true},
}

var byName = func() map[string]ID {
	m := make(map[string]ID, count)
	for id := ManufacturerID; id < count; id++ {
		m[table[id].name] = id
	}
	return m
}()

// Lookup returns the field for an upstream register-table name.
func Lookup(name string) (ID, bool) {
	id, ok := byName[name]
	return id, ok
}

// All returns every valid field in declaration order.
func All() []ID {
	out := make([]ID, 0, count-1)
	for id := ManufacturerID; id < count; id++ {
		out = append(out, id)
	}
	return out
}

// Valid reports whether id is a member of the closed set.
func (id ID) Valid() bool { return id > Invalid && id < count }

// Name returns the upstream register-table name.
func (id ID) Name() string {
	if !id.Valid() {
		return "invalid"
	}
	return table[id].name
}

// Attribute returns the attribute name the aggregation layer uses. Cell
// fields are relative to the addressed cell.
func (id ID) Attribute() string {
	if !id.Valid() {
		return ""
	}
	return table[id].attribute
}

// Cell reports whether id lives in the per-cell block.
func (id ID) Cell() bool {
	return id.Valid() && table[id].cell
}

func (id ID) String() string { return id.Name() }
