package decoder

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// FrameBits is the length of one sensor frame on the wire.
const FrameBits = 36

// SignalPart is one candidate frame: the bits collected between two
// boundary pulses.
type SignalPart struct {
	bits []uint8
}

// Append adds a bit to the end of the part.
func (p *SignalPart) Append(bit uint8) {
	p.bits = append(p.bits, bit&1)
}

func (p *SignalPart) Len() int {
	return len(p.bits)
}

// Valid reports whether the part has exactly the length of a frame.
func (p *SignalPart) Valid() bool {
	return len(p.bits) == FrameBits
}

// String renders the part as a string of '0' and '1'.
func (p *SignalPart) String() string {
	var sb strings.Builder
	sb.Grow(len(p.bits))
	for _, b := range p.bits {
		sb.WriteByte('0' + b)
	}
	return sb.String()
}

// SignalGroup collects the parts of one burst. It always holds at least one
// part and is not modified any more once finalized.
type SignalGroup struct {
	parts     []*SignalPart
	createdAt uint64
	finalized bool
	pulses    int
	jitter    []float64
}

// NewSignalGroup opens a burst whose first edge arrived at createdAt (µs).
func NewSignalGroup(createdAt uint64) *SignalGroup {
	return &SignalGroup{
		parts:     []*SignalPart{{}},
		createdAt: createdAt,
	}
}

// Feed segments one pulse into the group: boundary pulses start a new part,
// bit pulses extend the last one, everything else is noise.
func (g *SignalGroup) Feed(p Pulse) {
	if g.finalized {
		return
	}
	g.pulses++

	switch {
	case p.Duration >= BoundaryWidth:
		if g.last().Len() > 0 {
			g.parts = append(g.parts, &SignalPart{})
		}
	case p.Duration == BitWidth:
		g.last().Append(p.Level)
		g.jitter = append(g.jitter, math.Abs(float64(p.Gap)-float64(BitWidth)))
	}
}

func (g *SignalGroup) last() *SignalPart {
	return g.parts[len(g.parts)-1]
}

// Parts returns the parts collected so far, in arrival order.
func (g *SignalGroup) Parts() []*SignalPart {
	return g.parts
}

func (g *SignalGroup) CreatedAt() uint64 {
	return g.createdAt
}

// Empty is true when the burst did not contribute a single bit.
func (g *SignalGroup) Empty() bool {
	for _, p := range g.parts {
		if p.Len() > 0 {
			return false
		}
	}
	return true
}

func (g *SignalGroup) finalize() {
	g.finalized = true
}

// Finalized reports whether the group has been closed by the pipeline.
func (g *SignalGroup) Finalized() bool {
	return g.finalized
}

// BurstStats summarizes the timing quality of a burst. Jitter is the
// absolute deviation of every bit pulse from the nominal bit width.
type BurstStats struct {
	Pulses       int
	Bits         int
	Parts        int
	JitterMean   float64
	JitterStdDev float64
}

// Stats computes the burst's timing statistics.
func (g *SignalGroup) Stats() BurstStats {
	s := BurstStats{Pulses: g.pulses, Bits: len(g.jitter), Parts: len(g.parts)}
	switch len(g.jitter) {
	case 0:
	case 1:
		s.JitterMean = g.jitter[0]
	default:
		s.JitterMean, s.JitterStdDev = stat.MeanStdDev(g.jitter, nil)
	}
	return s
}
