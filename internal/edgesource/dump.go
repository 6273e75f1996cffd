package edgesource

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
)

// WriteDump writes events in the "<timestamp µs> <level>" format read by
// ReplayCapture, preceded by a '#' comment line when header is non-empty.
func WriteDump(w io.Writer, header string, events []types.EdgeEvent) error {
	bw := bufio.NewWriter(w)
	if header != "" {
		if _, err := fmt.Fprintf(bw, "# %s\n", header); err != nil {
			return err
		}
	}
	for _, ev := range events {
		if _, err := fmt.Fprintf(bw, "%d %d\n", ev.Timestamp, ev.Level); err != nil {
			return err
		}
	}
	return bw.Flush()
}
