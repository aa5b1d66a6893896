package dispatch

import "encoding/binary"

// RepeaterStatsSize is the fixed GET_STATUS response length.
const RepeaterStatsSize = 52

// RepeaterStats is the fixed-layout snapshot a GET_STATUS request returns.
type RepeaterStats struct {
	BatteryMV     uint16
	QueueLen      uint8
	NoiseFloor    int16
	LastRSSI      int16
	PacketsRX     uint32
	PacketsTX     uint32
	PacketsFwd    uint32
	UniqueNodes   uint32
	Logins        uint32
	LoginFailures uint32
	RateLimited   uint32
	AirtimeSecs   uint32
	UptimeSecs    uint32
	BootCount     uint32
}

// Serialize encodes the snapshot as RepeaterStatsSize little-endian bytes.
func (s RepeaterStats) Serialize() []byte {
	out := make([]byte, RepeaterStatsSize)
	binary.LittleEndian.PutUint16(out[0:2], s.BatteryMV)
	out[2] = s.QueueLen
	// out[3] reserved
	binary.LittleEndian.PutUint16(out[4:6], uint16(s.NoiseFloor))
	binary.LittleEndian.PutUint16(out[6:8], uint16(s.LastRSSI))
	binary.LittleEndian.PutUint32(out[8:12], s.PacketsRX)
	binary.LittleEndian.PutUint32(out[12:16], s.PacketsTX)
	binary.LittleEndian.PutUint32(out[16:20], s.PacketsFwd)
	binary.LittleEndian.PutUint32(out[20:24], s.UniqueNodes)
	binary.LittleEndian.PutUint32(out[24:28], s.Logins)
	binary.LittleEndian.PutUint32(out[28:32], s.LoginFailures)
	binary.LittleEndian.PutUint32(out[32:36], s.RateLimited)
	binary.LittleEndian.PutUint32(out[36:40], s.AirtimeSecs)
	binary.LittleEndian.PutUint32(out[40:44], s.UptimeSecs)
	binary.LittleEndian.PutUint32(out[44:48], s.BootCount)
	// out[48:52] reserved
	return out
}

// RadioStats is the GET_MINMAXAVG response payload.
type RadioStats struct {
	MinRSSI, MaxRSSI, AvgRSSI int16
	MinSNR, MaxSNR, AvgSNR    int16
}

// Serialize encodes RadioStats as 12 little-endian bytes.
func (r RadioStats) Serialize() []byte {
	out := make([]byte, 12)
	binary.LittleEndian.PutUint16(out[0:2], uint16(r.MinRSSI))
	binary.LittleEndian.PutUint16(out[2:4], uint16(r.MaxRSSI))
	binary.LittleEndian.PutUint16(out[4:6], uint16(r.AvgRSSI))
	binary.LittleEndian.PutUint16(out[6:8], uint16(r.MinSNR))
	binary.LittleEndian.PutUint16(out[8:10], uint16(r.MaxSNR))
	binary.LittleEndian.PutUint16(out[10:12], uint16(r.AvgSNR))
	return out
}

// TelemetryReading is the set of sensor values GET_TELEMETRY reports.
type TelemetryReading struct {
	BatteryVolts float32
	TemperatureC float32
	AnalogInput  float32
	HasGPS       bool
	LatDeg       float64
	LonDeg       float64
	AltMeters    float64
}

const (
	cayenneChannel = 1

	cayenneTypeAnalogInput = 0x02
	cayenneTypeTemperature = 0x67
	cayenneTypeGPS         = 0x88
)

// EncodeCayenneLPP frames the reading as a sequence of Cayenne
// Low-Power-Payload records: channel | type | data.
func (t TelemetryReading) EncodeCayenneLPP() []byte {
	var out []byte

	out = appendAnalog(out, cayenneTypeAnalogInput, t.BatteryVolts)
	out = appendAnalog(out, cayenneTypeTemperature, t.TemperatureC)
	out = appendAnalog(out, cayenneTypeAnalogInput, t.AnalogInput)

	if t.HasGPS {
		out = append(out, cayenneChannel, cayenneTypeGPS)
		out = appendSigned24(out, int32(t.LatDeg*10000))
		out = appendSigned24(out, int32(t.LonDeg*10000))
		out = appendSigned24(out, int32(t.AltMeters*100))
	}

	return out
}

func appendAnalog(out []byte, typ byte, value float32) []byte {
	out = append(out, cayenneChannel, typ)
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(int16(value*100)))
	return append(out, buf[:]...)
}

func appendSigned24(out []byte, v int32) []byte {
	return append(out, byte(v>>16), byte(v>>8), byte(v))
}
