package decoder

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
)

// Frame layout, index 0 is the first bit received:
//
//	[0:4] channel   [4:6] reserved  [6:8] station    [8:10] reserved
//	[10:12] battery [12:13] reserved [13:24] temperature (inverted)
//	[24:25] reserved [25:32] humidity (inverted) [32:36] reserved
type span struct{ start, end int }

var (
	channelBits     = span{0, 4}
	stationBits     = span{6, 8}
	batteryBits     = span{10, 12}
	temperatureBits = span{13, 24}
	humidityBits    = span{25, 32}

	// No verified meaning exists for these regions (trend and check bits
	// have been guessed at); they are only surfaced raw.
	reservedBits = []span{{4, 6}, {8, 10}, {12, 13}, {24, 25}, {32, 36}}
)

const temperatureOffset = 500

// Fields are the values carried by one frame.
type Fields struct {
	Channel        uint8
	Station        types.Station
	Battery        types.Battery
	TemperatureRaw uint16
	Temperature    float64
	HumidityRaw    uint8
	Humidity       float64
	Raw            string
}

// DecodeFrame maps a 36 character bit string onto its fields. It never
// fails: anything that is not a well-formed frame decodes with an
// undefined station and battery, which the validator rejects.
func DecodeFrame(frame string) Fields {
	f := Fields{Raw: frame}
	if !wellFormed(frame) {
		return f
	}

	f.Channel = uint8(bitsValue(frame, channelBits, false))

	switch frame[stationBits.start:stationBits.end] {
	case "00":
		f.Station = types.StationT1
	case "01":
		f.Station = types.StationT2
	}

	switch frame[batteryBits.start:batteryBits.end] {
	case "10":
		f.Battery = types.BatteryOK
	case "01":
		f.Battery = types.BatteryLow
	}

	f.TemperatureRaw = uint16(bitsValue(frame, temperatureBits, true))
	f.Temperature = float64(int(f.TemperatureRaw)-temperatureOffset) / 10

	f.HumidityRaw = uint8(bitsValue(frame, humidityBits, true))
	f.Humidity = float64(f.HumidityRaw) / 2

	return f
}

// Reserved returns the undecoded regions of the frame in wire order.
func (f Fields) Reserved() []string {
	if !wellFormed(f.Raw) {
		return nil
	}
	out := make([]string, 0, len(reservedBits))
	for _, s := range reservedBits {
		out = append(out, f.Raw[s.start:s.end])
	}
	return out
}

// EncodeFrame builds the frame a sensor would send for the given values,
// with all reserved bits cleared. Undefined station or battery are encoded
// as "11". It is the inverse of DecodeFrame for representable values.
func EncodeFrame(channel uint8, station types.Station, battery types.Battery, temperature, humidity float64) (string, error) {
	if channel > 15 {
		return "", fmt.Errorf("channel %d does not fit in 4 bits", channel)
	}
	tempRaw := int(math.Round(temperature*10)) + temperatureOffset
	if tempRaw < 0 || tempRaw >= 1<<(temperatureBits.end-temperatureBits.start) {
		return "", fmt.Errorf("temperature %.1f is not representable", temperature)
	}
	humRaw := int(math.Round(humidity * 2))
	if humRaw < 0 || humRaw >= 1<<(humidityBits.end-humidityBits.start) {
		return "", fmt.Errorf("humidity %.1f is not representable", humidity)
	}

	frame := []byte(strings.Repeat("0", FrameBits))
	put := func(s span, value uint64, invert bool) {
		width := s.end - s.start
		bits := fmt.Sprintf("%0*b", width, value)
		for i := 0; i < width; i++ {
			b := bits[i]
			if invert {
				b ^= 1
			}
			frame[s.start+i] = b
		}
	}

	put(channelBits, uint64(channel), false)
	switch station {
	case types.StationT1:
		put(stationBits, 0b00, false)
	case types.StationT2:
		put(stationBits, 0b01, false)
	default:
		put(stationBits, 0b11, false)
	}
	switch battery {
	case types.BatteryOK:
		put(batteryBits, 0b10, false)
	case types.BatteryLow:
		put(batteryBits, 0b01, false)
	default:
		put(batteryBits, 0b11, false)
	}
	put(temperatureBits, uint64(tempRaw), true)
	put(humidityBits, uint64(humRaw), true)

	return string(frame), nil
}

func wellFormed(frame string) bool {
	if len(frame) != FrameBits {
		return false
	}
	return strings.Trim(frame, "01") == ""
}

func bitsValue(frame string, s span, invert bool) uint64 {
	bits := frame[s.start:s.end]
	if invert {
		bits = strings.Map(func(r rune) rune {
			if r == '0' {
				return '1'
			}
			return '0'
		}, bits)
	}
	v, _ := strconv.ParseUint(bits, 2, 64)
	return v
}
