package transport

import "errors"

// ErrNotImplemented is returned by every SerialRadio method. The physical
// LoRa transceiver driver is an external collaborator out of scope here;
// SerialRadio exists only so a real driver binding can satisfy the Radio
// interface without this package depending on any hardware library.
var ErrNotImplemented = errors.New("transport: serial radio driver not implemented")

// SerialRadio is a placeholder Radio implementation for a real
// transceiver reachable over a serial/SPI bridge. Wire a concrete driver
// in by replacing this type's methods, not by extending the Radio
// interface.
type SerialRadio struct{}

func (SerialRadio) Begin(uint32, uint32, int, int, byte, int8, uint16) error { return ErrNotImplemented }
func (SerialRadio) SetRxBoost(bool) error                                   { return ErrNotImplemented }
func (SerialRadio) SetCRC(CRCMode) error                                    { return ErrNotImplemented }
func (SerialRadio) StartReceiveDutyCycle(uint16, uint32, uint32) error      { return ErrNotImplemented }
func (SerialRadio) StartTransmit([]byte) error                              { return ErrNotImplemented }
func (SerialRadio) ReadData([]byte) (int, error)                            { return 0, ErrNotImplemented }
func (SerialRadio) IRQStatus() (uint32, error)                              { return 0, ErrNotImplemented }
func (SerialRadio) RSSI() int16                                             { return 0 }
func (SerialRadio) SNR() int16                                              { return 0 }
func (SerialRadio) FinishTransmit() error                                   { return ErrNotImplemented }
func (SerialRadio) Reset() error                                            { return ErrNotImplemented }
