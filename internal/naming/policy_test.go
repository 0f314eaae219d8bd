package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRuleAppendsSuffix(t *testing.T) {
	p := NewPolicy("-mt", nil)

	r := p.Route("gr3-shop12")
	assert.Equal(t, "gr3-shop12-mt", r.Device)
	assert.True(t, r.Probe)
	assert.False(t, r.Redirected())
	assert.Empty(t, r.TelemetryHost)
}

func TestRenameOverrideStillProbes(t *testing.T) {
	p := NewPolicy("-mt", []Override{{Site: "gr3-old", Device: "gr3-new-router"}})

	r := p.Route("gr3-old")
	assert.Equal(t, "gr3-new-router", r.Device)
	assert.True(t, r.Probe)
	assert.False(t, p.Redirected("gr3-old"))
}

func TestRedirectOverrideSkipsProbe(t *testing.T) {
	p := NewPolicy("-mt", []Override{{Site: " gr3-mall ", Device: "gr3-mall-reserve", RedirectTelemetry: true}})

	r := p.Route("gr3-mall")
	assert.Equal(t, "gr3-mall-reserve", r.Device)
	assert.False(t, r.Probe)
	assert.True(t, r.Redirected())
	assert.Equal(t, "gr3-mall-reserve", r.TelemetryHost)
}

func TestOverrideWithoutDeviceFallsBackToSuffix(t *testing.T) {
	p := NewPolicy("-mt", []Override{{Site: "a", RedirectTelemetry: true}})

	r := p.Route("a")
	assert.Equal(t, "a-mt", r.Device)
	assert.True(t, r.Probe)
}
