package modbus

import (
	"errors"
	"fmt"
	"net"

	mb "github.com/goburrow/modbus"
)

type readOutcome int

const (
	readOk readOutcome = iota
	readDeviceError
	readTimeout
	readBadConn
)

// chunkResult carries the outcome of one bounded read. The chunk loop
// branches on Outcome instead of inspecting raw error values.
type chunkResult struct {
	Outcome       readOutcome
	Start         uint16
	Words         []uint16
	ExceptionCode byte
	Err           error
}

func classifyReadError(start uint16, err error) chunkResult {
	var me *mb.ModbusError
	if errors.As(err, &me) {
		return chunkResult{Outcome: readDeviceError, Start: start, ExceptionCode: me.ExceptionCode,
			Err: fmt.Errorf("%w: %v", ErrDeviceException, err)}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return chunkResult{Outcome: readTimeout, Start: start, Err: err}
	}
	return chunkResult{Outcome: readBadConn, Start: start, Err: fmt.Errorf("%w: %v", ErrBadConn, err)}
}
