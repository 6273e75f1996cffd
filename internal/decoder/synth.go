package decoder

import "github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"

// Nominal edge spacing used when synthesizing bursts, in µs.
const (
	synthGapWidth  = 900
	synthLeadWidth = 250
)

// SynthesizeBurst renders frames as the edge events a receiver would
// report for one transmission starting after start (µs). Every frame is
// preceded by a boundary pulse and every bit is a short lead pulse followed
// by a bit-width pulse carrying the bit's level. A trailing boundary closes
// the last frame. It returns the events and the timestamp of the last one.
func SynthesizeBurst(start uint64, frames []string) ([]types.EdgeEvent, uint64) {
	ts := start
	var events []types.EdgeEvent

	for _, frame := range frames {
		ts += synthGapWidth
		events = append(events, types.EdgeEvent{Timestamp: ts, Level: 0})

		for i := 0; i < len(frame); i++ {
			bit := frame[i] - '0'
			ts += synthLeadWidth
			events = append(events, types.EdgeEvent{Timestamp: ts, Level: 1 - bit})
			ts += BitWidth
			events = append(events, types.EdgeEvent{Timestamp: ts, Level: bit})
		}
	}

	ts += synthGapWidth
	events = append(events, types.EdgeEvent{Timestamp: ts, Level: 0})
	return events, ts
}
