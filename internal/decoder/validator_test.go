package decoder

import (
	"testing"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
)

func reading(temperature float64) Fields {
	return Fields{
		Channel:     1,
		Station:     types.StationT1,
		Battery:     types.BatteryOK,
		Temperature: temperature,
		Humidity:    40,
	}
}

func TestValidatorGates(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
		want   RejectReason
	}{
		{name: "plausible", fields: reading(21.5), want: NotRejected},
		{name: "undefined station", fields: Fields{Station: types.StationUndefined, Battery: types.BatteryOK, Temperature: 20}, want: UndefinedStation},
		{name: "undefined battery", fields: Fields{Station: types.StationT2, Battery: types.BatteryUndefined, Temperature: 20}, want: UndefinedBattery},
		{name: "station checked before battery", fields: Fields{Temperature: 20}, want: UndefinedStation},
		{name: "too hot", fields: reading(60), want: OutOfPhysicalRange},
		{name: "upper bound is exclusive", fields: reading(50), want: OutOfPhysicalRange},
		{name: "lower bound is exclusive", fields: reading(-20), want: OutOfPhysicalRange},
		{name: "just inside lower bound", fields: reading(-19.9), want: NotRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(DefaultLimits())
			if got := v.Validate(tt.fields); got != tt.want {
				t.Errorf("Validate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidatorDrift(t *testing.T) {
	tests := []struct {
		name         string
		policy       DriftPolicy
		temperatures []float64
		want         []RejectReason
		reference    float64
	}{
		{
			name:         "fixed reference",
			policy:       DriftFixed,
			temperatures: []float64{20, 31, 30.5, 29.9, 35, 10.1},
			want:         []RejectReason{NotRejected, OutOfDriftTolerance, OutOfDriftTolerance, NotRejected, OutOfDriftTolerance, NotRejected},
			reference:    20,
		},
		{
			name:         "rolling reference follows every candidate",
			policy:       DriftRolling,
			temperatures: []float64{20, 31, 32, 20.9},
			want:         []RejectReason{NotRejected, OutOfDriftTolerance, NotRejected, OutOfDriftTolerance},
			reference:    20.9,
		},
		{
			name:         "tolerance is exclusive",
			policy:       DriftFixed,
			temperatures: []float64{20, 30, 10},
			want:         []RejectReason{NotRejected, OutOfDriftTolerance, OutOfDriftTolerance},
			reference:    20,
		},
		{
			name:         "range rejections leave the reference alone",
			policy:       DriftRolling,
			temperatures: []float64{20, 55, 25},
			want:         []RejectReason{NotRejected, OutOfPhysicalRange, NotRejected},
			reference:    25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := DefaultLimits()
			l.DriftPolicy = tt.policy
			v := NewValidator(l)

			for i, temp := range tt.temperatures {
				if got := v.Validate(reading(temp)); got != tt.want[i] {
					t.Errorf("reading %d (%.1f): got %s, want %s", i, temp, got, tt.want[i])
				}
			}

			ref, ok := v.Reference()
			if !ok {
				t.Fatal("no reference after valid readings")
			}
			if ref.Temperature != tt.reference {
				t.Errorf("reference = %.1f, want %.1f", ref.Temperature, tt.reference)
			}
		})
	}
}

func TestValidatorFirstStructurallyValidBecomesReference(t *testing.T) {
	v := NewValidator(DefaultLimits())

	if got := v.Validate(Fields{Temperature: 45}); got != UndefinedStation {
		t.Fatalf("got %s, want UndefinedStation", got)
	}
	if _, ok := v.Reference(); ok {
		t.Fatal("rejected frame became the reference")
	}
	if got := v.Validate(reading(5)); got != NotRejected {
		t.Fatalf("got %s, want NotRejected", got)
	}
	if ref, _ := v.Reference(); ref.Temperature != 5 {
		t.Errorf("reference = %.1f, want 5", ref.Temperature)
	}
}

func TestParseDriftPolicy(t *testing.T) {
	for _, s := range []string{"fixed", "rolling"} {
		if p, err := ParseDriftPolicy(s); err != nil || string(p) != s {
			t.Errorf("ParseDriftPolicy(%q) = %q, %v", s, p, err)
		}
	}
	if _, err := ParseDriftPolicy("sliding"); err == nil {
		t.Error("expected an error for an unknown policy")
	}
}
