package node

import (
	"errors"
	"fmt"
)

var (
	// ErrHandleReleased is returned once the handle was taken for shutdown.
	ErrHandleReleased = errors.New("node handle released")
	// ErrNotRunning rejects commands that need a running node.
	ErrNotRunning = errors.New("node is not running")
	// ErrInvalidPeerAddress rejects malformed peer addresses.
	ErrInvalidPeerAddress = errors.New("invalid peer address")
	// ErrInvalidHeight rejects malformed or out of range block heights.
	ErrInvalidHeight = errors.New("invalid block height")
	// ErrNoSnapshot is returned when statistics have not been fetched yet.
	ErrNoSnapshot = errors.New("no statistics available")
)

// ErrorKind decides how the controller reacts to an Error message.
type ErrorKind int

const (
	// ErrorLaunch moves the node to Failed.
	ErrorLaunch ErrorKind = iota
	// ErrorOperation is a failed fetch or command; polling continues.
	ErrorOperation
	// ErrorShutdown leaves the node in ShuttingDown.
	ErrorShutdown
	// ErrorInput is user input rejected before dispatch.
	ErrorInput
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorLaunch:
		return "launch"
	case ErrorOperation:
		return "operation"
	case ErrorShutdown:
		return "shutdown"
	case ErrorInput:
		return "input"
	default:
		return "unknown"
	}
}

// SharedHandleError is returned when shutdown finds other holders of the
// handle. Refs counts every holder including the controller.
type SharedHandleError struct {
	Refs int64
}

func (e *SharedHandleError) Error() string {
	return fmt.Sprintf("cannot shut down: %d references remain", e.Refs)
}
