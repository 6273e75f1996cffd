package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/decoder"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/edgesource"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage/sqlite"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/pkg/config"
	"go.uber.org/zap/zaptest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunDecodesReplayIntoSQLite(t *testing.T) {
	dir := t.TempDir()

	frame, err := decoder.EncodeFrame(3, types.StationT1, types.BatteryLow, -4.5, 38)
	if err != nil {
		t.Fatal(err)
	}
	events, _ := decoder.SynthesizeBurst(1_000_000, []string{frame, frame, frame, frame})

	var dump strings.Builder
	if err := edgesource.WriteDump(&dump, "app test", events); err != nil {
		t.Fatal(err)
	}
	replay := writeFile(t, dir, "burst.dump", dump.String())
	db := filepath.Join(dir, "measurements.db")

	cfgPath := writeFile(t, dir, "config.yaml", fmt.Sprintf(`
capture:
  type: replay
  replay-file: %s
  poll-interval: 10ms
storage:
  sqlite:
    path: %s
`, replay, db))

	a := New(config.NewYAMLProvider(cfgPath), zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	store, err := sqlite.New(context.Background(), db, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ms, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 1 {
		t.Fatalf("stored %d measurements, want 1", len(ms))
	}
	m := ms[0]
	if m.Station != types.StationT1 || m.Channel != 3 || m.Battery != types.BatteryLow || m.Temperature != -4.5 || m.Humidity != 38 || m.Raw != frame {
		t.Errorf("stored %+v", m)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", `
capture:
  type: replay
decoder:
  drift-policy: sliding
`)

	err := New(config.NewYAMLProvider(cfgPath), zaptest.NewLogger(t).Sugar()).Run(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"replay file", "drift policy"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestRunMissingConfig(t *testing.T) {
	err := New(config.NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")), zaptest.NewLogger(t).Sugar()).Run(context.Background())
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestDecoderConfig(t *testing.T) {
	cfg := &config.ConfigData{
		Capture: config.CaptureData{PollInterval: "250ms"},
		Decoder: config.DecoderData{
			PartTimeout:    3000,
			MinTemperature: -30,
			MaxTemperature: 60,
			DriftTolerance: 5,
			DriftPolicy:    "fixed",
		},
	}

	got, err := DecoderConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := decoder.Config{
		PartTimeout:  3000,
		PollInterval: 250 * time.Millisecond,
		Limits: decoder.Limits{
			MinTemperature: -30,
			MaxTemperature: 60,
			DriftTolerance: 5,
			DriftPolicy:    decoder.DriftFixed,
		},
	}
	if got != want {
		t.Errorf("DecoderConfig = %+v, want %+v", got, want)
	}

	cfg.Decoder.DriftPolicy = "sliding"
	if _, err := DecoderConfig(cfg); err == nil {
		t.Error("expected an error for an unknown drift policy")
	}
}
