package main

import (
	"strings"
	"testing"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/pkg/config"
)

func TestReport(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ConfigData
		ok      bool
		want    []string
		notWant []string
	}{
		{
			name: "valid replay with sqlite",
			cfg: config.ConfigData{
				Capture: config.CaptureData{Type: config.CaptureReplay, ReplayFile: "burst.dump"},
				Storage: config.StorageData{SQLite: &config.SQLiteData{Path: "/var/lib/funk.db"}},
			},
			ok:      true,
			want:    []string{"file: burst.dump", "sqlite: /var/lib/funk.db", "rolling reference", "✓ Configuration is valid"},
			notWant: []string{"memory"},
		},
		{
			name: "memory fallback",
			cfg: config.ConfigData{
				Capture: config.CaptureData{Type: config.CaptureGPIO, Pin: "GPIO27"},
			},
			ok:   true,
			want: []string{"pin: GPIO27", "memory (no database configured"},
		},
		{
			name: "every problem listed",
			cfg: config.ConfigData{
				Capture: config.CaptureData{Type: config.CaptureSerial},
				Decoder: config.DecoderData{DriftPolicy: "sliding"},
			},
			want: []string{"✗ capture: serial capture requires a serial device", "✗ decoder: unknown drift policy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()

			var out strings.Builder
			if got := report(&out, &cfg); got != tt.ok {
				t.Errorf("report = %v, want %v\n%s", got, tt.ok, out.String())
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output missing %q\n%s", w, out.String())
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out.String(), w) {
					t.Errorf("output unexpectedly contains %q", w)
				}
			}
		})
	}
}
