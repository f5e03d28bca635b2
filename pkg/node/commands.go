package node

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/salahayoub/bonsai/pkg/logging"
)

// ParsePeerAddress validates a "host:port" peer address and returns it
// trimmed.
func ParsePeerAddress(input string) (string, error) {
	addr := strings.TrimSpace(input)
	if addr == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidPeerAddress)
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPeerAddress, err)
	}
	if host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidPeerAddress, addr)
	}
	if p, err := strconv.ParseUint(port, 10, 16); err != nil || p == 0 {
		return "", fmt.Errorf("%w: bad port %q", ErrInvalidPeerAddress, port)
	}
	return addr, nil
}

// ParseBlockHeight parses a decimal block height.
func ParseBlockHeight(input string) (uint32, error) {
	s := strings.TrimSpace(input)
	h, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHeight, s)
	}
	return uint32(h), nil
}

// lease acquires a share of the running node's handle.
func (c *Controller) lease() (*Lease, error) {
	if c.status.Kind != StatusRunning || c.handle == nil {
		return nil, ErrNotRunning
	}
	return c.handle.Acquire()
}

func (c *Controller) addPeer() Task {
	addr, err := ParsePeerAddress(c.peerInput)
	if err != nil {
		return Done(Error{Op: OpConnect, Kind: ErrorInput, Err: err})
	}
	lease, err := c.lease()
	if err != nil {
		return Done(Error{Op: OpConnect, Kind: ErrorOperation, Err: err})
	}

	logging.Info("connecting to peer", logging.Component("node"), logging.Peer(addr))
	timeout := c.opts.OperationTimeout
	return Perform(func(ctx context.Context) Message {
		defer lease.Release()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		accepted, err := lease.Engine().ConnectPeer(ctx, addr)
		if err != nil {
			return Error{Op: OpConnect, Kind: ErrorOperation, Err: err}
		}
		return PeerConnected{Addr: addr, Accepted: accepted}
	})
}

func (c *Controller) disconnectPeer(input string) Task {
	addr, err := ParsePeerAddress(input)
	if err != nil {
		return Done(Error{Op: OpDisconnect, Kind: ErrorInput, Err: err})
	}
	lease, err := c.lease()
	if err != nil {
		return Done(Error{Op: OpDisconnect, Kind: ErrorOperation, Err: err})
	}

	timeout := c.opts.OperationTimeout
	return Perform(func(ctx context.Context) Message {
		defer lease.Release()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := lease.Engine().DisconnectPeer(ctx, addr); err != nil {
			return Error{Op: OpDisconnect, Kind: ErrorOperation, Err: err}
		}
		return PeerDisconnected{Addr: addr}
	})
}

func (c *Controller) fetchBlock(height uint32) Task {
	if c.stats != nil && height > c.stats.ValidatedHeight {
		return Done(Error{
			Op:   OpBlock,
			Kind: ErrorInput,
			Err:  fmt.Errorf("%w: %d is above validated height %d", ErrInvalidHeight, height, c.stats.ValidatedHeight),
		})
	}
	lease, err := c.lease()
	if err != nil {
		return Done(Error{Op: OpBlock, Kind: ErrorOperation, Err: err})
	}

	c.explorerHeight = height
	c.hasExplorer = true
	c.block = nil
	c.blockPending = true

	timeout := c.opts.OperationTimeout
	return Perform(func(ctx context.Context) Message {
		defer lease.Release()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		eng := lease.Engine()
		hash, err := eng.BlockHashAt(ctx, height)
		if err != nil {
			return Error{Op: OpBlock, Kind: ErrorOperation, Err: err}
		}
		block, err := eng.GetBlock(ctx, hash)
		if err != nil {
			return Error{Op: OpBlock, Kind: ErrorOperation, Err: err}
		}
		return BlockFetched{Height: height, Block: block}
	})
}

func (c *Controller) copyAccumulator() Task {
	if c.stats == nil {
		return Done(Error{Op: OpCopy, Kind: ErrorOperation, Err: ErrNoSnapshot})
	}
	payload := c.stats.AccumulatorExport
	write := c.opts.Clipboard
	return Perform(func(context.Context) Message {
		if err := write(payload); err != nil {
			return Error{Op: OpCopy, Kind: ErrorOperation, Err: err}
		}
		return AccumulatorCopied{}
	})
}
