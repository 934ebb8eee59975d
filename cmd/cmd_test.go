package cmd

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/travisano/unite-heatmap/config"
)

func TestVideoInterval(t *testing.T) {
	tests := []struct {
		name string
		fps  float64
		rate float64
		want int
	}{
		{"one sample per second of 60fps", 60, 1, 59},
		{"two samples per second of 30fps", 30, 2, 14},
		{"rate above fps", 30, 60, 0},
		{"unknown fps", 0, 1, 0},
		{"zero rate", 30, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := videoInterval(tt.fps, tt.rate); got != tt.want {
				t.Errorf("videoInterval(%v, %v) = %d, want %d", tt.fps, tt.rate, got, tt.want)
			}
		})
	}
}

func TestOptionsApplyOnlyChangedFlags(t *testing.T) {
	cfg = config.Default()
	var opts Options
	c := &cobra.Command{Use: "test"}
	addSessionFlags(c, &opts)

	if err := c.ParseFlags([]string{"--map", "remoat", "-w", "4", "--no-history"}); err != nil {
		t.Fatal(err)
	}
	opts.apply(c)

	if cfg.Paths.Map != "remoat" {
		t.Errorf("map = %q, want remoat", cfg.Paths.Map)
	}
	if cfg.Session.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Session.Workers)
	}
	if cfg.Paths.History != "" {
		t.Errorf("history = %q, want disabled", cfg.Paths.History)
	}
	if cfg.Paths.Output != config.Default().Paths.Output {
		t.Errorf("output changed to %q without the flag", cfg.Paths.Output)
	}
}
