package senseboard

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Vec3 is one 3-axis sample. On the wire it is a 3-element array.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// ColorRGBC is the APDS9960 4-channel color sample: red, green, blue and
// clear. The firmware emits it as an {r,g,b,c} object, older captures as a
// 4-element array; both are accepted.
type ColorRGBC struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	C int `json:"c"`
}

func (c ColorRGBC) String() string {
	return fmt.Sprintf("(r=%d, g=%d, b=%d, c=%d)", c.R, c.G, c.B, c.C)
}

// SensorPacket is one decoded telemetry sample. Every sensor field is
// optional: a nil pointer means the wire packet did not report that sensor.
// Packets are immutable once returned by ParsePacket.
type SensorPacket struct {
	// Timestamp is assigned locally when the line is decoded; the device
	// does not embed timestamps.
	Timestamp time.Time

	// HS3003 humidity/temperature sensor.
	HS3003TempC    *float64
	HS3003Humidity *float64

	// LPS22HB barometer.
	LPS22HBPressureKPa *float64
	LPS22HBTempC       *float64

	// APDS9960 proximity/color/gesture sensor.
	APDSProximity *int
	APDSColor     *ColorRGBC
	APDSGesture   *int

	// IMU: acceleration in g, angular rate in degrees/s, magnetic field
	// in microtesla.
	AccelG  *Vec3
	GyroDPS *Vec3
	MagUT   *Vec3
}

// ParsePacket attempts to decode one line of serial input as a telemetry
// packet. It is total: for any input it either returns a packet or reports
// false, never an error. Lines that are not a JSON object (debug output,
// boot banners, corrupted fragments) report false. Recognized keys with an
// incompatible shape are treated as absent; unrecognized keys are ignored.
func ParsePacket(line string) (*SensorPacket, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return nil, false
	}
	if fields == nil {
		// "null" parses as JSON but carries no object.
		return nil, false
	}

	pkt := &SensorPacket{
		Timestamp: time.Now().UTC(),

		HS3003TempC:    floatField(fields, "hs3003_t_c"),
		HS3003Humidity: floatField(fields, "hs3003_h_rh"),

		LPS22HBPressureKPa: floatField(fields, "lps22hb_p_kpa"),
		LPS22HBTempC:       floatField(fields, "lps22hb_t_c"),

		APDSProximity: intField(fields, "apds_prox"),
		APDSColor:     colorField(fields, "apds_color"),
		APDSGesture:   intField(fields, "apds_gesture"),

		AccelG:  vec3Field(fields, "acc_g"),
		GyroDPS: vec3Field(fields, "gyro_dps"),
		MagUT:   vec3Field(fields, "mag_uT"),
	}
	return pkt, true
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 4 && string(raw) == "null"
}

func floatField(fields map[string]json.RawMessage, key string) *float64 {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func intField(fields map[string]json.RawMessage, key string) *int {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func vec3Field(fields map[string]json.RawMessage, key string) *Vec3 {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var comps []float64
	if err := json.Unmarshal(raw, &comps); err != nil || len(comps) != 3 {
		return nil
	}
	return &Vec3{X: comps[0], Y: comps[1], Z: comps[2]}
}

func colorField(fields map[string]json.RawMessage, key string) *ColorRGBC {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var channels []int
	if err := json.Unmarshal(raw, &channels); err == nil {
		if len(channels) != 4 {
			return nil
		}
		return &ColorRGBC{R: channels[0], G: channels[1], B: channels[2], C: channels[3]}
	}
	var c ColorRGBC
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	return &c
}
