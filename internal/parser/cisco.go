package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	cpuRE = regexp.MustCompile(`CPU utilization for five seconds: (\d+)%(?:/(\d+)%)?; one minute: (\d+)%; five minutes: (\d+)%`)

	memPoolRE = regexp.MustCompile(`Processor Pool Total:\s*(\d+)\s+Used:\s*(\d+)\s+Free:\s*(\d+)`)

	tempValueRE = regexp.MustCompile(`(?i)Temperature Value:\s*(\d+)\s*Degree Celsius`)
	tempStateRE = regexp.MustCompile(`(?i)Temperature State:\s*(\w+)`)
	tempOKRE    = regexp.MustCompile(`(?i)SYSTEM TEMPERATURE is (\w+)`)

	fanLineRE = regexp.MustCompile(`(?i)^Switch\s+\d+\s+FAN\s+\d+\s+(?:speed\s+\d+\s+)?is\s+(\w+)`)

	powerRowRE = regexp.MustCompile(`(?i)^(\d[A-B]?)\s+(\S+)\s+(\S+)\s+(\w+(?:\s\w+)?)\s+(\w+)\s+(\w+)\s+(\d+)\s*$`)

	stackRowRE = regexp.MustCompile(`(?i)^\*?\s*(\d+)\s+(\S+)\s+([0-9a-f.]+)\s+(\d+)\s+(\S+)\s+(\S+)\s*$`)

	versionRE = regexp.MustCompile(`(?m)Cisco IOS(?:-| )XE Software.*Version\s+(\S+?),?\s*$|Version\s+([\w.()]+),`)
	uptimeRE  = regexp.MustCompile(`(?m)^\S+ uptime is (.+)$`)
)

// ParseProcessesCPU extracts utilization percentages from "show processes cpu".
//
//	CPU utilization for five seconds: 12%/4%; one minute: 10%; five minutes: 9%
func ParseProcessesCPU(raw string) (map[string]any, error) {
	m := cpuRE.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("no CPU utilization line found")
	}
	fields := map[string]any{
		"cpu_percent_5s": mustFloat(m[1]),
		"cpu_percent_1m": mustFloat(m[3]),
		"cpu_percent_5m": mustFloat(m[4]),
	}
	if m[2] != "" {
		fields["cpu_percent_5s_interrupt"] = mustFloat(m[2])
	}
	return fields, nil
}

// ParseProcessesMemory extracts processor pool usage from
// "show processes memory".
//
//	Processor Pool Total:  866442976 Used:  267436816 Free:  599006160
func ParseProcessesMemory(raw string) (map[string]any, error) {
	m := memPoolRE.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("no processor pool summary found")
	}
	total := mustFloat(m[1])
	used := mustFloat(m[2])
	free := mustFloat(m[3])

	fields := map[string]any{
		"memory_total_bytes": total,
		"memory_used_bytes":  used,
		"memory_free_bytes":  free,
	}
	if total > 0 {
		fields["memory_used_percent"] = round1(used / total * 100)
	}
	return fields, nil
}

// ParseEnvTemperature extracts the system temperature reading and state from
// "show env temperature status".
func ParseEnvTemperature(raw string) (map[string]any, error) {
	fields := map[string]any{}
	if m := tempValueRE.FindStringSubmatch(raw); m != nil {
		fields["temperature_celsius"] = mustFloat(m[1])
	}
	if m := tempStateRE.FindStringSubmatch(raw); m != nil {
		fields["temperature_state"] = strings.ToUpper(m[1])
	} else if m := tempOKRE.FindStringSubmatch(raw); m != nil {
		fields["temperature_state"] = strings.ToUpper(m[1])
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no temperature reading found")
	}
	return fields, nil
}

// ParseEnvFan counts fan states from "show env fan".
//
//	Switch 1 FAN 1 is OK
//	Switch 1 FAN 2 is FAULTY
func ParseEnvFan(raw string) (map[string]any, error) {
	var total, failures float64
	for _, line := range strings.Split(raw, "\n") {
		m := fanLineRE.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		total++
		if !strings.EqualFold(m[1], "OK") {
			failures++
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("no fan status lines found")
	}
	return map[string]any{
		"fans_total":   total,
		"fans_ok":      total - failures,
		"fan_failures": failures,
	}, nil
}

// ParseEnvPower reads the power supply table from "show env power all".
//
//	SW  PID                 Serial#     Status           Sys Pwr  PoE Pwr  Watts
//	--  ------------------  ----------  ---------------  -------  -------  -----
//	1A  PWR-C1-715WAC       DCB1636C1Z0 OK               Good     Good     715
func ParseEnvPower(raw string) (map[string]any, error) {
	var total, failures, watts float64
	for _, line := range strings.Split(raw, "\n") {
		m := powerRowRE.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		total++
		status := strings.ToUpper(strings.Fields(m[4])[0])
		if status != "OK" {
			failures++
			continue
		}
		watts += mustFloat(m[7])
	}
	if total == 0 {
		return nil, fmt.Errorf("no power supply rows found")
	}
	return map[string]any{
		"ps_total":              total,
		"ps_failures":           failures,
		"power_available_watts": watts,
	}, nil
}

// ParseSwitchStack reads stack membership from "show switch".
//
//	Switch/Stack Mac Address : 7cb1.5c2a.8500
//	Switch#  Role     Mac Address     Priority Version  Current State
//	*1       Active   7cb1.5c2a.8500  15       V01      Ready
//	 2       Standby  7cb1.5c2a.9900  14       V01      Ready
func ParseSwitchStack(raw string) (map[string]any, error) {
	var members, notReady float64
	for _, line := range strings.Split(raw, "\n") {
		m := stackRowRE.FindStringSubmatch(strings.TrimRight(line, " \r"))
		if m == nil {
			continue
		}
		members++
		if !strings.EqualFold(m[6], "Ready") {
			notReady++
		}
	}
	if members == 0 {
		return nil, fmt.Errorf("no stack member rows found")
	}
	return map[string]any{
		"stack_members":     members,
		"members_not_ready": notReady,
	}, nil
}

// ParseVersion extracts the software version and uptime line from
// "show version". Informational only; no thresholds apply.
func ParseVersion(raw string) (map[string]any, error) {
	fields := map[string]any{}
	if m := versionRE.FindStringSubmatch(raw); m != nil {
		v := m[1]
		if v == "" {
			v = m[2]
		}
		fields["software_version"] = strings.TrimSuffix(v, ",")
	}
	if m := uptimeRE.FindStringSubmatch(raw); m != nil {
		fields["uptime"] = strings.TrimSpace(m[1])
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no version information found")
	}
	return fields, nil
}

func mustFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
