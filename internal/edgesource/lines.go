package edgesource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"go.uber.org/zap"
)

// Level words written by piscope/pigpio dumps for the monitored GPIO.
const (
	piscopeLevelLow  = "1000C1FF"
	piscopeLevelHigh = "1080C1FF"
)

// parseEdgeLine parses one "<timestamp µs> <level>" record. Blank lines and
// '#' comments yield ok == false with no error. The level is either 0/1 or
// a piscope level word.
func parseEdgeLine(line string) (ts uint64, level uint8, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return 0, 0, false, nil
	}

	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, false, fmt.Errorf("expected 2 columns, got %d", len(fields))
	}

	ts, err = strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid timestamp %q: %w", fields[0], err)
	}

	switch strings.ToUpper(fields[1]) {
	case "0", piscopeLevelLow:
		level = 0
	case "1", piscopeLevelHigh:
		level = 1
	default:
		return 0, 0, false, fmt.Errorf("malformed level %q", fields[1])
	}
	return ts, level, true, nil
}

// feedLines reads edge records from r until EOF or ctx is cancelled.
// Malformed records are logged and skipped; mapTS may rewrite timestamps
// and emit delivers each event.
func feedLines(ctx context.Context, r io.Reader, name string, logger *zap.SugaredLogger, mapTS func(uint64) uint64, emit func(types.EdgeEvent) error) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ts, level, ok, err := parseEdgeLine(scanner.Text())
		if err != nil {
			logger.Warnf("%s: skipping line %d: %v", name, lineNo, err)
			continue
		}
		if !ok {
			continue
		}

		if err := emit(types.EdgeEvent{Timestamp: mapTS(ts), Level: level}); err != nil {
			return err
		}
	}
	return scanner.Err()
}
