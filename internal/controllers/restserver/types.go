package restserver

import (
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/storage"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
)

const (
	defaultLimit = 1
	maxLimit     = 1000
)

// MeasurementReading represents a measurement for JSON and MessagePack output
type MeasurementReading struct {
	ID          string  `json:"id"`
	Station     string  `json:"station"`
	Timestamp   int64   `json:"ts"`
	Channel     uint8   `json:"channel"`
	Battery     string  `json:"battery"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Raw         string  `json:"raw"`
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status  string               `json:"status"`
	Engines []storage.HealthData `json:"engines"`
}

func transformMeasurements(ms []types.Measurement) []MeasurementReading {
	out := make([]MeasurementReading, 0, len(ms))
	for _, m := range ms {
		out = append(out, MeasurementReading{
			ID:          m.ID,
			Station:     m.Station.String(),
			Timestamp:   m.CapturedAt.Unix(),
			Channel:     m.Channel,
			Battery:     m.Battery.String(),
			Temperature: m.Temperature,
			Humidity:    m.Humidity,
			Raw:         m.Raw,
		})
	}
	return out
}
