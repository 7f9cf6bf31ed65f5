package block

import (
	"errors"
	"fmt"
)

var (
	// ErrShape is returned when endpoints don't match requested topology.
	ErrShape = errors.New("endpoint shape mismatch")
	// ErrZeroMTU is returned when producer has no transfer unit.
	ErrZeroMTU = errors.New("producer MTU is zero")
	// ErrConnected is returned when endpoint is already connected.
	ErrConnected = errors.New("endpoint already connected")
	// ErrNoRoutine is returned when block without routine is started.
	ErrNoRoutine = errors.New("block has no routine")
	// ErrAlreadyStarted is returned when block is started twice or its
	// topology is changed after start.
	ErrAlreadyStarted = errors.New("block already started")
	// ErrBusy is returned when connection is torn down while it's used.
	ErrBusy = errors.New("connection is in use")
	// ErrShutdown is returned when samples are written after shutdown.
	ErrShutdown = errors.New("connection is shut down")
	// ErrOverflow is returned when batch exceeds fan-out buffer capacity.
	ErrOverflow = errors.New("batch exceeds buffer capacity")
)

// AttachError is returned when a sink couldn't be attached to fan-out
// connection.
type AttachError struct {
	Sink string
	Err  error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("attach sink %s: %v", e.Sink, e.Err)
}

// Unwrap returns the cause of attach failure.
func (e *AttachError) Unwrap() error {
	return e.Err
}
