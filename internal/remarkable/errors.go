package remarkable

import (
	"errors"
	"fmt"
)

// ControlError wraps a failure of the ssh control channel: dialing,
// authentication, or remote command execution.
type ControlError struct {
	Op  string
	Err error
}

func (e *ControlError) Error() string {
	return fmt.Sprintf("control channel: %s: %v", e.Op, e.Err)
}

func (e *ControlError) Unwrap() error {
	return e.Err
}

// TransferError wraps a failure of the sftp transfer channel: the
// subsystem being unavailable, or a read or write failing.
type TransferError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("transfer channel: %s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("transfer channel: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsControl reports whether err is a control channel failure.
func IsControl(err error) bool {
	var ce *ControlError
	return errors.As(err, &ce)
}

// IsTransfer reports whether err is a transfer channel failure.
func IsTransfer(err error) bool {
	var te *TransferError
	return errors.As(err, &te)
}
