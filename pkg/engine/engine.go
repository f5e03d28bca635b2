// Package engine defines the boundary between bonsai and the Utreexo
// validation node it drives. The node itself is an external collaborator;
// this package only describes what the lifecycle controller needs from it
// and ships a florestad-backed implementation.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Network identifies the chain the node validates.
type Network int

const (
	Bitcoin Network = iota
	Signet
	Testnet
	Testnet4
	Regtest
)

var networkNames = map[Network]string{
	Bitcoin:  "bitcoin",
	Signet:   "signet",
	Testnet:  "testnet",
	Testnet4: "testnet4",
	Regtest:  "regtest",
}

func (n Network) String() string {
	if s, ok := networkNames[n]; ok {
		return s
	}
	return fmt.Sprintf("network(%d)", int(n))
}

// ParseNetwork accepts the lowercase network names plus "mainnet".
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitcoin", "mainnet":
		return Bitcoin, nil
	case "signet":
		return Signet, nil
	case "testnet", "testnet3":
		return Testnet, nil
	case "testnet4":
		return Testnet4, nil
	case "regtest":
		return Regtest, nil
	}
	return Bitcoin, fmt.Errorf("unknown network %q", s)
}

// Networks lists every supported network in display order.
func Networks() []Network {
	return []Network{Bitcoin, Signet, Testnet, Testnet4, Regtest}
}

// NodeConfig is the fully resolved configuration consumed at launch.
type NodeConfig struct {
	Network    Network
	DataDir    string
	RPCAddress string
	Binary     string

	AssumeUtreexo   bool
	FraudProofs     bool
	Backfill        bool
	AllowV1Fallback bool
	DisableDNSSeeds bool
	UserAgent       string
	FixedPeer       string
	Proxy           string
	MaxBanScore     uint32
	MaxOutbound     uint32
	MaxInflight     uint32

	StartupTimeout    time.Duration
	BlockPollInterval time.Duration
}

// DefaultNodeConfig returns the configuration used when nothing is persisted.
func DefaultNodeConfig(network Network) NodeConfig {
	return NodeConfig{
		Network:           network,
		RPCAddress:        DefaultRPCAddress(network),
		Binary:            "florestad",
		AssumeUtreexo:     true,
		FraudProofs:       true,
		Backfill:          true,
		AllowV1Fallback:   true,
		StartupTimeout:    30 * time.Second,
		BlockPollInterval: 2 * time.Second,
	}
}

// DefaultRPCAddress returns florestad's default JSON-RPC listen address.
func DefaultRPCAddress(network Network) string {
	switch network {
	case Signet:
		return "127.0.0.1:38332"
	case Testnet:
		return "127.0.0.1:18332"
	case Testnet4:
		return "127.0.0.1:48332"
	case Regtest:
		return "127.0.0.1:18442"
	default:
		return "127.0.0.1:8332"
	}
}

// Accumulator is the Utreexo forest digest: leaf count plus root hashes.
type Accumulator struct {
	Leaves uint64
	Roots  [][32]byte
}

// RawPeer is a peer record as reported by the node.
type RawPeer struct {
	Address       string
	Services      uint64
	UserAgent     string
	InitialHeight uint32
	State         string
	Kind          string // "inbound", "outbound", "manual", ...
	Transport     string
}

// Block is the subset of a block the explorer shows.
type Block struct {
	Hash       string
	Height     uint32
	Version    int32
	PrevHash   string
	MerkleRoot string
	Time       time.Time
	Bits       string
	Nonce      uint32
	TxIDs      []string
	Size       uint32
	Weight     uint32
}

// BlockEvent announces a new chain tip.
type BlockEvent struct {
	Height uint32
	Hash   string
}

// Launcher starts a node from a resolved configuration.
type Launcher interface {
	Launch(ctx context.Context, cfg NodeConfig) (Engine, error)
}

// Engine is a running node. Methods are safe for concurrent use; Shutdown
// must be called exactly once, by the sole owner.
type Engine interface {
	InIBD(ctx context.Context) (bool, error)
	HeaderHeight(ctx context.Context) (uint32, error)
	ValidatedHeight(ctx context.Context) (uint32, error)
	AccumulatorDigest(ctx context.Context) (Accumulator, error)
	UserAgent(ctx context.Context) (string, error)
	PeerList(ctx context.Context) ([]RawPeer, error)

	ConnectPeer(ctx context.Context, addr string) (bool, error)
	DisconnectPeer(ctx context.Context, addr string) error

	BlockHashAt(ctx context.Context, height uint32) (string, error)
	// GetBlock returns nil, nil when the node does not know the block.
	GetBlock(ctx context.Context, hash string) (*Block, error)

	// OnBlock registers fn for new tips. The returned func unregisters it
	// and may be called more than once.
	OnBlock(fn func(BlockEvent)) (unregister func())

	Shutdown(ctx context.Context) error
}
