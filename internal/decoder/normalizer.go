package decoder

import "github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"

// PulseWidths are the canonical pulse durations in microseconds. Every gap
// between two edges is snapped to the closest of these.
var PulseWidths = [...]uint64{0, 250, 500, 750}

const (
	// BitWidth is the only pulse width that carries a data bit.
	BitWidth uint64 = 500
	// BoundaryWidth and longer pulses separate the repeated frames of a burst.
	BoundaryWidth uint64 = 750
)

// Pulse is an edge event whose duration has been quantized.
type Pulse struct {
	Duration uint64
	Level    uint8
	// Gap is the measured distance to the previous edge, kept for jitter stats.
	Gap int64
}

// Normalizer turns absolute edge timestamps into canonical pulses.
type Normalizer struct {
	previous uint64
}

// Normalize quantizes the time since the previous edge and remembers the
// event's timestamp for the next call.
func (n *Normalizer) Normalize(ev types.EdgeEvent) Pulse {
	gap := int64(ev.Timestamp) - int64(n.previous)
	n.previous = ev.Timestamp
	return Pulse{Duration: Quantize(gap), Level: ev.Level, Gap: gap}
}

// Quantize returns the entry of PulseWidths nearest to gap. On a tie the
// shorter width wins.
func Quantize(gap int64) uint64 {
	best := 0
	bestDist := distance(PulseWidths[0], gap)
	for i := 1; i < len(PulseWidths); i++ {
		if d := distance(PulseWidths[i], gap); d < bestDist {
			best, bestDist = i, d
		}
	}
	return PulseWidths[best]
}

func distance(width uint64, gap int64) uint64 {
	d := int64(width) - gap
	if d < 0 {
		return uint64(-d)
	}
	return uint64(d)
}
