package forward

import (
	"math"
	"time"
)

// LoRaParams describes the radio configuration the airtime formula needs.
type LoRaParams struct {
	SpreadingFactor int // SF, 6-12
	Bandwidth       int // Hz
	CodingRate      int // CR denominator offset, 1-4 (4/(4+CR))
	PreambleSymbols int
	LowDataRateOpt  bool
}

// SymbolTime returns the LoRa symbol period for the given SF/BW.
func SymbolTime(p LoRaParams) time.Duration {
	return time.Duration(float64(uint64(1)<<uint(p.SpreadingFactor)) / float64(p.Bandwidth) * float64(time.Second))
}

// Airtime computes the on-air duration of a payloadLen-byte LoRa packet
// using the standard formula:
//
//	t_sym = 2^SF / BW
//	n_payload = 8 + max(ceil((8*PL - 4*SF + 28 + 16) / (4*SF)) * CR, 0)
//	airtime = (preamble_symbols + 4.25 + n_payload) * t_sym
func Airtime(p LoRaParams, payloadLen int) time.Duration {
	tSym := SymbolTime(p)

	sf := float64(p.SpreadingFactor)
	de := 0.0
	if p.LowDataRateOpt {
		de = 2
	}

	numerator := 8*float64(payloadLen) - 4*sf + 28 + 16
	denominator := 4 * (sf - de)

	nPayload := 8.0
	if denominator > 0 {
		ratio := math.Ceil(numerator/denominator) * float64(p.CodingRate)
		if ratio > 0 {
			nPayload += ratio
		}
	}

	symbols := float64(p.PreambleSymbols) + 4.25 + nPayload
	return time.Duration(symbols * float64(tSym))
}

// Accountant accumulates airtime in millisecond buckets, rolling up to
// whole seconds for the persistent-stats "airtime_secs" counter.
type Accountant struct {
	accumulatedMS int64
}

// Add records payload airtime spent transmitting or receiving one frame.
func (a *Accountant) Add(d time.Duration) {
	a.accumulatedMS += d.Milliseconds()
}

// Seconds returns the whole seconds of airtime accumulated so far,
// without discarding the sub-second remainder (it carries into the next
// call).
func (a *Accountant) Seconds() int64 {
	return a.accumulatedMS / 1000
}
