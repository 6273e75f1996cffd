package types

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// EdgeEvent is a single logic-level transition reported by the capture
// hardware. Timestamp is in microseconds on a monotonic clock that must not
// go backwards within a session.
type EdgeEvent struct {
	Timestamp uint64
	Level     uint8
}

// Station identifies which sensor of the pair sent a frame.
type Station uint8

const (
	StationUndefined Station = iota
	StationT1
	StationT2
)

func (s Station) String() string {
	switch s {
	case StationT1:
		return "T1"
	case StationT2:
		return "T2"
	default:
		return "Undefined"
	}
}

// ParseStation is the inverse of Station.String.
func ParseStation(v string) (Station, error) {
	switch v {
	case "T1":
		return StationT1, nil
	case "T2":
		return StationT2, nil
	case "Undefined":
		return StationUndefined, nil
	}
	return StationUndefined, fmt.Errorf("unknown station %q", v)
}

// Value implements driver.Valuer so stations are stored as "T1"/"T2".
func (s Station) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner
func (s *Station) Scan(src interface{}) error {
	str, err := scanString(src)
	if err != nil {
		return err
	}
	*s, err = ParseStation(str)
	return err
}

// Battery is the low-battery flag carried in every frame.
type Battery uint8

const (
	BatteryUndefined Battery = iota
	BatteryOK
	BatteryLow
)

func (b Battery) String() string {
	switch b {
	case BatteryOK:
		return "OK"
	case BatteryLow:
		return "Low"
	default:
		return "Undefined"
	}
}

// ParseBattery is the inverse of Battery.String.
func ParseBattery(v string) (Battery, error) {
	switch v {
	case "OK":
		return BatteryOK, nil
	case "Low":
		return BatteryLow, nil
	case "Undefined":
		return BatteryUndefined, nil
	}
	return BatteryUndefined, fmt.Errorf("unknown battery state %q", v)
}

// Value implements driver.Valuer
func (b Battery) Value() (driver.Value, error) {
	return b.String(), nil
}

// Scan implements sql.Scanner
func (b *Battery) Scan(src interface{}) error {
	str, err := scanString(src)
	if err != nil {
		return err
	}
	*b, err = ParseBattery(str)
	return err
}

func scanString(src interface{}) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "Undefined", nil
	}
	return "", fmt.Errorf("cannot scan %T into an enum column", src)
}

// Measurement is a decoded sensor reading that passed every plausibility
// gate. It is the only thing handed to the storage engines.
type Measurement struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Station     Station   `gorm:"column:station"`
	CapturedAt  time.Time `gorm:"column:timestamp"`
	Channel     uint8     `gorm:"column:channel"`
	Battery     Battery   `gorm:"column:battery"`
	Temperature float64   `gorm:"column:temperature"`
	Humidity    float64   `gorm:"column:humidity"`
	Raw         string    `gorm:"column:raw"`

	// Support is the number of identical frames that won the consensus vote
	// and Parts the number of 36-bit frames seen in the burst.
	Support int `gorm:"-"`
	Parts   int `gorm:"-"`
}

// TableName implements the GORM Tabler interface for the Measurement struct
func (Measurement) TableName() string {
	return "measurement"
}

// ToMap flattens a Measurement into JSON-compatible values for the
// publishing engines (MQTT payloads, gRPC structs).
func (m *Measurement) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":          m.ID,
		"station":     m.Station.String(),
		"timestamp":   m.CapturedAt.UTC().Format(time.RFC3339Nano),
		"channel":     int(m.Channel),
		"battery":     m.Battery.String(),
		"temperature": m.Temperature,
		"humidity":    m.Humidity,
		"raw":         m.Raw,
		"support":     m.Support,
	}
}
