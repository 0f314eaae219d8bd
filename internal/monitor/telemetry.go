package monitor

import (
	"math"
	"strconv"
	"strings"

	"uplink-status-monitor/internal/snapshot"
)

// telemetry picks the ICMP figures out of raw item values. Missing,
// unparsable and negative values are left absent.
func (k TelemetryKeys) telemetry(values map[string]string) snapshot.Telemetry {
	var t snapshot.Telemetry
	if v, ok := parseValue(values, k.Loss); ok {
		t.LossPercent15m = &v
	}
	if v, ok := parseValue(values, k.Response); ok {
		scale := k.ResponseScale
		if scale == 0 {
			scale = 1
		}
		v *= scale
		t.AvgResponseMs1m = &v
	}
	return t
}

// live is the reachability rule for sites that are not probed: the liveness
// item when it has a value, otherwise a response with less than total loss.
func (k TelemetryKeys) live(values map[string]string) bool {
	if v, ok := parseValue(values, k.Liveness); ok {
		return v >= 1
	}
	loss, okLoss := parseValue(values, k.Loss)
	resp, okResp := parseValue(values, k.Response)
	return okLoss && okResp && loss < 100 && resp > 0
}

func parseValue(values map[string]string, key string) (float64, bool) {
	if key == "" {
		return 0, false
	}
	raw, ok := values[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
