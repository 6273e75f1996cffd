// Package main writes synthetic 433 MHz sensor transmissions as an edge dump
// that the replay capture can decode.
package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/decoder"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/edgesource"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/log"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
)

type options struct {
	channel     uint
	station     string
	battery     string
	temperature float64
	humidity    float64
	step        float64
	repeats     int
	flips       int
	bursts      int
	interval    uint64
	seed        int64
}

func main() {
	var opts options
	flag.UintVar(&opts.channel, "channel", 1, "Sensor channel (0-15)")
	flag.StringVar(&opts.station, "station", "T1", "Station: T1, T2 or Undefined")
	flag.StringVar(&opts.battery, "battery", "OK", "Battery state: OK, Low or Undefined")
	flag.Float64Var(&opts.temperature, "temperature", 21.5, "Temperature in °C")
	flag.Float64Var(&opts.humidity, "humidity", 45, "Relative humidity in % (0-63.5)")
	flag.Float64Var(&opts.step, "step", 0, "Temperature change between bursts in °C")
	flag.IntVar(&opts.repeats, "repeats", 6, "Frame repetitions per burst")
	flag.IntVar(&opts.flips, "flips", 1, "Repetitions per burst with one corrupted bit")
	flag.IntVar(&opts.bursts, "bursts", 1, "Number of bursts to write")
	flag.Uint64Var(&opts.interval, "interval", 1_000_000, "Silence between bursts in µs")
	flag.Int64Var(&opts.seed, "seed", 1, "Seed for choosing corrupted bits")
	out := flag.String("out", "-", "Output file, - for stdout")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var w io.Writer = os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			log.Errorf("could not create %v: %v", *out, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	if err := run(w, opts); err != nil {
		log.Errorf("simulation failed: %v", err)
		os.Exit(1)
	}
}

func run(w io.Writer, opts options) error {
	if opts.channel > 15 {
		return fmt.Errorf("channel %d does not fit in 4 bits", opts.channel)
	}
	if opts.repeats < 1 {
		return fmt.Errorf("need at least one repetition, got %d", opts.repeats)
	}
	if opts.flips < 0 || opts.flips > opts.repeats {
		return fmt.Errorf("flips must be between 0 and %d", opts.repeats)
	}
	station, err := types.ParseStation(opts.station)
	if err != nil {
		return err
	}
	battery, err := types.ParseBattery(opts.battery)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(opts.seed))
	var events []types.EdgeEvent
	var ts uint64

	for b := 0; b < opts.bursts; b++ {
		temperature := opts.temperature + float64(b)*opts.step
		frame, err := decoder.EncodeFrame(uint8(opts.channel), station, battery, temperature, opts.humidity)
		if err != nil {
			return fmt.Errorf("burst %d: %w", b, err)
		}

		frames := make([]string, opts.repeats)
		for i := range frames {
			frames[i] = frame
			if i < opts.flips {
				frames[i] = flipBit(frame, rng.Intn(len(frame)))
			}
		}

		burst, last := decoder.SynthesizeBurst(ts, frames)
		events = append(events, burst...)
		ts = last + opts.interval
		log.Debugf("burst %d: frame %v at %.1f °C", b, frame, temperature)
	}

	header := fmt.Sprintf("ook-simulator ch%d %v battery=%v %.1fC %.1f%% repeats=%d flips=%d",
		opts.channel, station, battery, opts.temperature, opts.humidity, opts.repeats, opts.flips)
	return edgesource.WriteDump(w, header, events)
}

func flipBit(frame string, i int) string {
	b := []byte(frame)
	b[i] ^= 1
	return string(b)
}
