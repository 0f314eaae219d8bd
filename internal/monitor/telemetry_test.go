package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = TelemetryKeys{Loss: "loss", Response: "rtt", ResponseScale: 1000, Liveness: "ping"}

func TestTelemetryParsing(t *testing.T) {
	tel := keys.telemetry(map[string]string{"loss": " 12.5 ", "rtt": "0.004"})
	require.NotNil(t, tel.LossPercent15m)
	assert.Equal(t, 12.5, *tel.LossPercent15m)
	require.NotNil(t, tel.AvgResponseMs1m)
	assert.InDelta(t, 4.0, *tel.AvgResponseMs1m, 1e-9)

	for _, raw := range []string{"", "abc", "-3", "NaN", "+Inf"} {
		tel := keys.telemetry(map[string]string{"loss": raw, "rtt": raw})
		assert.Nil(t, tel.LossPercent15m, raw)
		assert.Nil(t, tel.AvgResponseMs1m, raw)
	}

	unscaled := TelemetryKeys{Response: "rtt"}.telemetry(map[string]string{"rtt": "7"})
	require.NotNil(t, unscaled.AvgResponseMs1m)
	assert.Equal(t, 7.0, *unscaled.AvgResponseMs1m)
}

func TestLive(t *testing.T) {
	assert.True(t, keys.live(map[string]string{"ping": "1"}))
	assert.False(t, keys.live(map[string]string{"ping": "0", "loss": "0", "rtt": "0.01"}))
	assert.True(t, keys.live(map[string]string{"loss": "99", "rtt": "0.01"}))
	assert.False(t, keys.live(map[string]string{"loss": "100", "rtt": "0.01"}))
	assert.False(t, keys.live(map[string]string{"rtt": "0.01"}))
	assert.False(t, keys.live(nil))
}

func TestTelemetryKeyList(t *testing.T) {
	assert.Equal(t, []string{"loss", "rtt", "ping"}, keys.list())
	assert.Equal(t, []string{"rtt"}, TelemetryKeys{Response: "rtt"}.list())
}
