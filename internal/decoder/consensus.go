package decoder

import "sort"

// WeakSupport is the cluster size below which a consensus frame is logged
// as low confidence. It does not reject the frame.
const WeakSupport = 3

// Consensus is the outcome of the majority vote over a burst.
type Consensus struct {
	Frame string
	// Support is the number of parts identical to Frame.
	Support int
	// Candidates is the number of parts of valid length that took part.
	Candidates int
}

// Weak reports a vote won by fewer than WeakSupport repetitions.
func (c Consensus) Weak() bool {
	return c.Support < WeakSupport
}

// ResolveConsensus picks the most frequently repeated full-length part.
// Ties go to the frame that sorts first. ok is false when no part has the
// frame length.
func ResolveConsensus(parts []*SignalPart) (c Consensus, ok bool) {
	frames := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Valid() {
			frames = append(frames, p.String())
		}
	}
	if len(frames) == 0 {
		return Consensus{}, false
	}

	sort.Strings(frames)

	c.Candidates = len(frames)
	for i := 0; i < len(frames); {
		j := i + 1
		for j < len(frames) && frames[j] == frames[i] {
			j++
		}
		if j-i > c.Support {
			c.Frame, c.Support = frames[i], j-i
		}
		i = j
	}
	return c, true
}
