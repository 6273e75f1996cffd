package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/decoder"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/edgesource"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage/memory"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"go.uber.org/zap/zaptest"
)

func defaultOptions() options {
	return options{
		channel:     2,
		station:     "T2",
		battery:     "OK",
		temperature: 18.5,
		humidity:    52,
		repeats:     6,
		flips:       2,
		bursts:      3,
		step:        0.5,
		interval:    1_000_000,
		seed:        7,
	}
}

func TestSimulatedDumpDecodes(t *testing.T) {
	var buf bytes.Buffer
	if err := run(&buf, defaultOptions()); err != nil {
		t.Fatalf("run: %v", err)
	}

	path := filepath.Join(t.TempDir(), "sim.dump")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := zaptest.NewLogger(t).Sugar()
	q := edgesource.NewQueue(len(buf.Bytes()), nil)
	var wg sync.WaitGroup
	edgesource.Start(context.Background(), &wg, edgesource.NewReplayCapture(path, logger), q, logger)
	wg.Wait()

	store := memory.New()
	p := decoder.New(decoder.DefaultConfig(), store, nil, logger)
	if err := p.Run(context.Background(), q); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := store.All()
	if len(got) != 3 {
		t.Fatalf("decoded %d measurements, want 3", len(got))
	}
	for i, m := range got {
		want := 18.5 + float64(i)*0.5
		if m.Station != types.StationT2 || m.Channel != 2 || m.Battery != types.BatteryOK {
			t.Errorf("burst %d: got %v ch%d %v", i, m.Station, m.Channel, m.Battery)
		}
		if m.Temperature != want || m.Humidity != 52 {
			t.Errorf("burst %d: got %.1f °C %.1f %%, want %.1f °C 52 %%", i, m.Temperature, m.Humidity, want)
		}
		if m.Support != 4 || m.Parts != 6 {
			t.Errorf("burst %d: support %d of %d, want 4 of 6", i, m.Support, m.Parts)
		}
	}
}

func TestRunRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*options)
	}{
		{"channel", func(o *options) { o.channel = 16 }},
		{"repeats", func(o *options) { o.repeats = 0 }},
		{"flips", func(o *options) { o.flips = 7 }},
		{"station", func(o *options) { o.station = "T3" }},
		{"battery", func(o *options) { o.battery = "empty" }},
		{"humidity", func(o *options) { o.humidity = 80 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions()
			tt.modify(&opts)
			if err := run(&bytes.Buffer{}, opts); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
