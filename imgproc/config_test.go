package imgproc

import (
	"errors"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejects(t *testing.T) {
	var tests = []struct {
		name   string
		mutate func(c *Config)
	}{
		{"inverted hsv bound", func(c *Config) { c.Small.Segment.Ranges[0] = Range(40, 0, 0, 20, 255, 255) }},
		{"no team ranges", func(c *Config) { c.Markers.TeamB = nil }},
		{"zero min area", func(c *Config) { c.Large.Blobs.MinArea = 0 }},
		{"inverted areas", func(c *Config) { c.Small.Blobs.MaxArea = 2 }},
		{"inverted aspect", func(c *Config) { c.Large.Blobs.MinAspect = 3 }},
		{"fill above one", func(c *Config) { c.Large.Blobs.MinFill = 1.5 }},
		{"negative min radius", func(c *Config) { c.Small.Blobs.MinRadius = -1 }},
		{"unknown morph", func(c *Config) { c.Small.Segment.Morph = []Morph{{Op: "blur", Kernel: 3}} }},
		{"radius bounds", func(c *Config) { c.Markers.Circles.MaxRadius = 4 }},
		{"core inset too large", func(c *Config) { c.Markers.CoreInset = 8 }},
		{"zero aspect", func(c *Config) { c.Localizer.TargetAspect = 0 }},
		{"size envelope", func(c *Config) { c.Localizer.MaxSize = 100 }},
		{"zone bounds", func(c *Config) { c.Zones = append(c.Zones, Zone{Name: "bad", X1: 0.5, X2: 0.4, Y2: 1}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestZoneOf(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	zone, ok := a.ZoneOf(r2.Point{X: 100, Y: 100}, 200, 200)
	require.True(t, ok)
	assert.Equal(t, "center", zone)

	zone, ok = a.ZoneOf(r2.Point{X: 100, Y: 20}, 200, 200)
	require.True(t, ok)
	assert.Equal(t, "top", zone)

	_, ok = a.ZoneOf(r2.Point{X: 20, Y: 100}, 200, 200)
	assert.False(t, ok)

	_, ok = a.ZoneOf(r2.Point{X: 20, Y: 100}, 0, 0)
	assert.False(t, ok)
}
