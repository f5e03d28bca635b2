package node

import (
	"fmt"

	"github.com/salahayoub/bonsai/pkg/engine"
)

// Message is an input to the controller. The set of variants is closed.
type Message interface {
	fmt.Stringer
	message()
}

// Op names used in Error messages.
const (
	OpLaunch     = "launch"
	OpStop       = "stop"
	OpStatistics = "statistics"
	OpConnect    = "connect peer"
	OpDisconnect = "disconnect peer"
	OpBlock      = "fetch block"
	OpCopy       = "copy accumulator"
)

type (
	// Start launches the node.
	Start struct {
		// afterStop marks the continuation of a Restart.
		afterStop bool
	}
	// Restart stops the node and starts it again.
	Restart struct{}
	// Running carries the handle of a freshly launched node.
	Running struct{ Handle *Handle }
	// Shutdown stops the node.
	Shutdown struct{}
	// ShuttingDown announces that teardown has begun.
	ShuttingDown struct{}
	// ShutdownComplete reports a finished stop.
	ShutdownComplete struct{}
	// StopFailed returns a handle that could not be taken exclusively.
	StopFailed struct {
		Handle *Handle
		Err    error
	}

	// Tick drives rendering. It has no effect on state.
	Tick struct{}
	// GetStatistics requests a statistics fetch.
	GetStatistics struct{}
	// Statistics is a completed fetch for the given generation.
	Statistics struct {
		Stats      *NodeStatistics
		Generation uint64
	}
	// ClearLogs empties the log capture.
	ClearLogs struct{}

	AddPeerInputChanged struct{ Input string }
	AddPeer             struct{}
	PeerConnected       struct {
		Addr     string
		Accepted bool
	}
	DisconnectPeer   struct{ Addr string }
	PeerDisconnected struct{ Addr string }

	BlockHeightInputChanged struct{ Input string }
	SubmitBlockHeight       struct{}
	FetchBlock              struct{ Height uint32 }
	// BlockFetched carries a nil Block when the node does not know it.
	BlockFetched struct {
		Height uint32
		Block  *engine.Block
	}
	BlockObserved struct{ Event engine.BlockEvent }

	CopyAccumulatorData struct{}
	AccumulatorCopied   struct{}

	// CloseRequested stops the node if needed and then quits.
	CloseRequested struct{}
	// Quit ends the runtime.
	Quit struct{}

	// Error reports a failed operation.
	Error struct {
		Op   string
		Kind ErrorKind
		Err  error

		// Generation tags statistics failures with the run that issued them.
		Generation uint64
	}
)

func (Start) message()                   {}
func (Restart) message()                 {}
func (Running) message()                 {}
func (Shutdown) message()                {}
func (ShuttingDown) message()            {}
func (ShutdownComplete) message()        {}
func (StopFailed) message()              {}
func (Tick) message()                    {}
func (GetStatistics) message()           {}
func (Statistics) message()              {}
func (ClearLogs) message()               {}
func (AddPeerInputChanged) message()     {}
func (AddPeer) message()                 {}
func (PeerConnected) message()           {}
func (DisconnectPeer) message()          {}
func (PeerDisconnected) message()        {}
func (BlockHeightInputChanged) message() {}
func (SubmitBlockHeight) message()       {}
func (FetchBlock) message()              {}
func (BlockFetched) message()            {}
func (BlockObserved) message()           {}
func (CopyAccumulatorData) message()     {}
func (AccumulatorCopied) message()       {}
func (CloseRequested) message()          {}
func (Quit) message()                    {}
func (Error) message()                   {}

func (Start) String() string            { return "Start" }
func (Restart) String() string          { return "Restart" }
func (Running) String() string          { return "Running" }
func (Shutdown) String() string         { return "Shutdown" }
func (ShuttingDown) String() string     { return "ShuttingDown" }
func (ShutdownComplete) String() string { return "ShutdownComplete" }
func (m StopFailed) String() string     { return fmt.Sprintf("StopFailed(%v)", m.Err) }
func (Tick) String() string             { return "Tick" }
func (GetStatistics) String() string    { return "GetStatistics" }
func (m Statistics) String() string     { return fmt.Sprintf("Statistics(gen=%d)", m.Generation) }
func (ClearLogs) String() string        { return "ClearLogs" }
func (m AddPeerInputChanged) String() string {
	return fmt.Sprintf("AddPeerInputChanged(%q)", m.Input)
}
func (AddPeer) String() string { return "AddPeer" }
func (m PeerConnected) String() string {
	return fmt.Sprintf("PeerConnected(%s, accepted=%t)", m.Addr, m.Accepted)
}
func (m DisconnectPeer) String() string   { return fmt.Sprintf("DisconnectPeer(%s)", m.Addr) }
func (m PeerDisconnected) String() string { return fmt.Sprintf("PeerDisconnected(%s)", m.Addr) }
func (m BlockHeightInputChanged) String() string {
	return fmt.Sprintf("BlockHeightInputChanged(%q)", m.Input)
}
func (SubmitBlockHeight) String() string { return "SubmitBlockHeight" }
func (m FetchBlock) String() string      { return fmt.Sprintf("FetchBlock(%d)", m.Height) }
func (m BlockFetched) String() string {
	return fmt.Sprintf("BlockFetched(%d, found=%t)", m.Height, m.Block != nil)
}
func (m BlockObserved) String() string {
	return fmt.Sprintf("BlockObserved(%d)", m.Event.Height)
}
func (CopyAccumulatorData) String() string { return "CopyAccumulatorData" }
func (AccumulatorCopied) String() string   { return "AccumulatorCopied" }
func (CloseRequested) String() string      { return "CloseRequested" }
func (Quit) String() string                { return "Quit" }
func (m Error) String() string {
	return fmt.Sprintf("Error(%s %s: %v)", m.Kind, m.Op, m.Err)
}
