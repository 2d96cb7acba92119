package sim

import (
	"fmt"
	"strings"
)

// Thermostat is a bitmask of active thermostat couplings.
type Thermostat uint8

const (
	ThermoOff      Thermostat = 0
	ThermoLangevin Thermostat = 1 << 0
	ThermoDPD      Thermostat = 1 << 1
	ThermoNPTIso   Thermostat = 1 << 2
	ThermoBrownian Thermostat = 1 << 3
	ThermoSD       Thermostat = 1 << 4
	ThermoLB       Thermostat = 1 << 5
)

var thermostatNames = []struct {
	bit  Thermostat
	name string
}{
	{ThermoLangevin, "langevin"},
	{ThermoDPD, "dpd"},
	{ThermoNPTIso, "npt_iso"},
	{ThermoBrownian, "brownian"},
	{ThermoSD, "stokesian"},
	{ThermoLB, "lb"},
}

func (t Thermostat) String() string {
	if t == ThermoOff {
		return "off"
	}
	var parts []string
	for _, e := range thermostatNames {
		if t&e.bit != 0 {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseThermostat maps a configuration string to a thermostat bit.
func ParseThermostat(name string) (Thermostat, error) {
	if name == "off" {
		return ThermoOff, nil
	}
	for _, e := range thermostatNames {
		if e.name == name {
			return e.bit, nil
		}
	}
	return 0, fmt.Errorf("unknown thermostat %q", name)
}
