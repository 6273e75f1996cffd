package decoder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/edgesource"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/metrics"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"go.uber.org/zap"
)

// ErrSinkFailed wraps storage errors. They end the pipeline.
var ErrSinkFailed = errors.New("measurement sink failed")

// Config holds the pipeline's timing parameters and plausibility limits.
type Config struct {
	// PartTimeout is the silence, in µs, that closes a burst.
	PartTimeout uint64
	// PollInterval is how long Run sleeps when the edge source is empty.
	PollInterval time.Duration
	Limits       Limits
}

// DefaultConfig returns the timing of the sensor protocol.
func DefaultConfig() Config {
	return Config{
		PartTimeout:  2000,
		PollInterval: time.Second,
		Limits:       DefaultLimits(),
	}
}

// Outcome describes what became of one finalized burst.
type Outcome struct {
	// Measurement is set when the burst was accepted.
	Measurement *types.Measurement
	Reason      RejectReason
	// Fields is set whenever a consensus frame could be decoded.
	Fields    *Fields
	Consensus Consensus
	// Reference is the drift reference the frame was compared against.
	Reference *Fields
	Stats     BurstStats
	// Empty marks a burst that carried no bits at all.
	Empty bool
}

// Accepted reports whether the burst produced a measurement.
func (o Outcome) Accepted() bool {
	return o.Reason == NotRejected && o.Measurement != nil
}

// State is a snapshot of the pipeline's mutable state.
type State struct {
	LastEvent  uint64
	GroupStart uint64
	Parts      int
	Bits       int
	Reference  *Fields
}

// Pipeline turns a stream of edge events into measurements. It is driven by
// a single goroutine and owns all of its state.
type Pipeline struct {
	cfg        Config
	normalizer Normalizer
	group      *SignalGroup
	lastEvent  uint64
	validator  *Validator

	sink    storage.MeasurementSink
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger

	now   func() time.Time
	newID func() string
}

// New creates a pipeline that writes accepted measurements to sink.
func New(cfg Config, sink storage.MeasurementSink, m *metrics.Metrics, logger *zap.SugaredLogger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		group:     NewSignalGroup(0),
		validator: NewValidator(cfg.Limits),
		sink:      sink,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Process consumes one edge event. When the event arrives after a silence
// of at least PartTimeout, the current burst is finalized first and its
// outcome returned. The error is non-nil only when the sink failed.
func (p *Pipeline) Process(ctx context.Context, ev types.EdgeEvent) (*Outcome, error) {
	var out *Outcome

	if ev.Timestamp >= p.lastEvent && ev.Timestamp-p.lastEvent >= p.cfg.PartTimeout {
		o, err := p.finalize(ctx)
		out = &o
		p.group = NewSignalGroup(ev.Timestamp)
		if err != nil {
			p.lastEvent = ev.Timestamp
			return out, err
		}
	}

	p.lastEvent = ev.Timestamp
	p.group.Feed(p.normalizer.Normalize(ev))
	p.metrics.ObserveEdge()

	return out, nil
}

// Flush finalizes the active burst without waiting for a following edge.
// It is used when a finite input ends.
func (p *Pipeline) Flush(ctx context.Context) (Outcome, error) {
	o, err := p.finalize(ctx)
	p.group = NewSignalGroup(p.lastEvent)
	return o, err
}

// Run polls src until ctx is cancelled, src is drained, or a fatal error
// occurs. An empty source is polled again after PollInterval. The burst in
// flight when ctx is cancelled is abandoned.
func (p *Pipeline) Run(ctx context.Context, src edgesource.EdgeSource) error {
	timer := time.NewTimer(p.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("cancellation request received. Stopping decoder pipeline")
			return nil
		default:
		}

		ev, ok, err := src.Next()
		if err != nil {
			if errors.Is(err, edgesource.ErrQueueDrained) {
				p.logger.Info("edge source drained, flushing last burst")
				_, err = p.Flush(ctx)
				return err
			}
			return fmt.Errorf("could not read edge events: %w", err)
		}

		if !ok {
			timer.Reset(p.cfg.PollInterval)
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
			continue
		}

		if _, err := p.Process(ctx, ev); err != nil {
			return err
		}
	}
}

// State returns a snapshot for diagnostics and tests.
func (p *Pipeline) State() State {
	s := State{
		LastEvent:  p.lastEvent,
		GroupStart: p.group.CreatedAt(),
		Parts:      len(p.group.Parts()),
	}
	for _, part := range p.group.Parts() {
		s.Bits += part.Len()
	}
	if ref, ok := p.validator.Reference(); ok {
		s.Reference = &ref
	}
	return s
}

func (p *Pipeline) finalize(ctx context.Context) (Outcome, error) {
	g := p.group
	g.finalize()

	out := Outcome{Stats: g.Stats(), Empty: g.Empty()}
	p.metrics.ObserveBurst(out.Stats.JitterMean)

	c, ok := ResolveConsensus(g.Parts())
	if !ok {
		out.Reason = NoConsensus
		p.reject(out, g)
		return out, nil
	}
	out.Consensus = c
	p.metrics.ObserveSupport(c.Support)
	if c.Weak() {
		p.logger.Infow("weak consensus",
			"frame", c.Frame,
			"support", c.Support,
			"candidates", c.Candidates,
		)
	}

	f := DecodeFrame(c.Frame)
	out.Fields = &f

	if ref, ok := p.validator.Reference(); ok {
		out.Reference = &ref
	}
	if reason := p.validator.Validate(f); reason != NotRejected {
		out.Reason = reason
		p.reject(out, g)
		return out, nil
	}

	m := types.Measurement{
		ID:          p.newID(),
		Station:     f.Station,
		CapturedAt:  p.now(),
		Channel:     f.Channel,
		Battery:     f.Battery,
		Temperature: f.Temperature,
		Humidity:    f.Humidity,
		Raw:         f.Raw,
		Support:     c.Support,
		Parts:       c.Candidates,
	}
	out.Measurement = &m

	if err := p.sink.StoreMeasurement(ctx, m); err != nil {
		return out, fmt.Errorf("%w: %w", ErrSinkFailed, err)
	}

	p.metrics.ObserveAccepted(m.Station.String(), m.Channel, m.Temperature, m.Humidity)
	p.logger.Infow("measurement accepted",
		"station", m.Station.String(),
		"timestamp", m.CapturedAt,
		"channel", m.Channel,
		"battery", m.Battery.String(),
		"temperature", m.Temperature,
		"humidity", m.Humidity,
		"raw", m.Raw,
		"support", c.Support,
		"jitter_us", out.Stats.JitterMean,
	)
	return out, nil
}

func (p *Pipeline) reject(out Outcome, g *SignalGroup) {
	p.metrics.ObserveRejected(out.Reason.String())

	if out.Fields == nil {
		if out.Empty {
			p.logger.Debugw("discarding burst without bits", "started_us", g.CreatedAt(), "pulses", out.Stats.Pulses)
			return
		}
		lengths := make([]int, 0, len(g.Parts()))
		for _, part := range g.Parts() {
			lengths = append(lengths, part.Len())
		}
		p.logger.Infow("discarding burst",
			"reason", out.Reason.String(),
			"started_us", g.CreatedAt(),
			"part_lengths", lengths,
		)
		return
	}

	f := out.Fields
	kv := []interface{}{
		"reason", out.Reason.String(),
		"station", f.Station.String(),
		"channel", f.Channel,
		"battery", f.Battery.String(),
		"temperature", f.Temperature,
		"humidity", f.Humidity,
		"raw", f.Raw,
		"reserved", f.Reserved(),
		"support", out.Consensus.Support,
	}
	if out.Reason == OutOfDriftTolerance && out.Reference != nil {
		kv = append(kv, "reference_temperature", out.Reference.Temperature)
	}
	p.logger.Infow("discarding measurement", kv...)
}
