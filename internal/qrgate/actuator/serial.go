// Package actuator translates access decisions into the one-byte serial
// protocol the door controller understands: '1' grants, '0' denies.
package actuator

import (
	"log"

	"go.bug.st/serial"
)

// Serial writes the decision byte to a serial port.  Write failures are
// logged and swallowed; the pipeline must never stall on the actuator.
type Serial struct {
	port   serial.Port
	name   string
	logger *log.Logger
}

// OpenSerial opens the configured port.  If the port cannot be opened (or
// portName is empty) it degrades to a logged no-op so a missing controller
// does not abort the pipeline.
func OpenSerial(portName string, baud int, logger *log.Logger) *Serial {
	if portName == "" {
		logger.Printf("actuator disabled: no serial port configured")
		return &Serial{logger: logger}
	}

	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		logger.Printf("actuator disabled: open %s: %v", portName, err)
		return &Serial{logger: logger}
	}

	logger.Printf("actuator connected on %s @ %d baud", portName, baud)
	return &Serial{port: port, name: portName, logger: logger}
}

// Signal writes exactly one byte for the decision.  No acknowledgment is
// awaited.
func (s *Serial) Signal(granted bool) {
	if s.port == nil {
		return
	}

	b := byte('0')
	if granted {
		b = '1'
	}
	if _, err := s.port.Write([]byte{b}); err != nil {
		s.logger.Printf("actuator write on %s: %v", s.name, err)
	}
}

func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
