package engine

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// RPC error codes florestad uses for unknown blocks and bad parameters.
const (
	rpcInvalidAddressOrKey = -5
	rpcInvalidParameter    = -8
)

// Client talks to florestad's JSON-RPC interface.
type Client struct {
	rpc *rpc.Client
}

// DialClient connects to the JSON-RPC endpoint at addr ("host:port" or a
// full http URL). Dialing over HTTP does not touch the network.
func DialClient(ctx context.Context, addr string) (*Client, error) {
	url := addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", addr, err)
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

type blockchainInfo struct {
	BestBlock  string   `json:"best_block"`
	Height     uint32   `json:"height"`
	Validated  uint32   `json:"validated"`
	IBD        bool     `json:"ibd"`
	LeafCount  uint64   `json:"leaf_count"`
	RootHashes []string `json:"root_hashes"`
}

func (c *Client) blockchainInfo(ctx context.Context) (*blockchainInfo, error) {
	var info blockchainInfo
	if err := c.rpc.CallContext(ctx, &info, "getblockchaininfo"); err != nil {
		return nil, fmt.Errorf("getblockchaininfo: %w", err)
	}
	return &info, nil
}

// Ping succeeds once the node answers RPC calls.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.blockchainInfo(ctx)
	return err
}

func (c *Client) InIBD(ctx context.Context) (bool, error) {
	info, err := c.blockchainInfo(ctx)
	if err != nil {
		return false, err
	}
	return info.IBD, nil
}

func (c *Client) HeaderHeight(ctx context.Context) (uint32, error) {
	info, err := c.blockchainInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.Height, nil
}

func (c *Client) ValidatedHeight(ctx context.Context) (uint32, error) {
	info, err := c.blockchainInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.Validated, nil
}

func (c *Client) AccumulatorDigest(ctx context.Context) (Accumulator, error) {
	info, err := c.blockchainInfo(ctx)
	if err != nil {
		return Accumulator{}, err
	}
	acc := Accumulator{Leaves: info.LeafCount, Roots: make([][32]byte, 0, len(info.RootHashes))}
	for _, h := range info.RootHashes {
		root, err := decodeHash(h)
		if err != nil {
			return Accumulator{}, fmt.Errorf("root hash %q: %w", h, err)
		}
		acc.Roots = append(acc.Roots, root)
	}
	return acc, nil
}

// tip returns the best block as seen by the node.
func (c *Client) tip(ctx context.Context) (BlockEvent, error) {
	info, err := c.blockchainInfo(ctx)
	if err != nil {
		return BlockEvent{}, err
	}
	return BlockEvent{Height: info.Height, Hash: info.BestBlock}, nil
}

type peerInfo struct {
	Address       string          `json:"address"`
	Services      json.RawMessage `json:"services"`
	UserAgent     string          `json:"user_agent"`
	InitialHeight uint32          `json:"initial_height"`
	State         string          `json:"state"`
	Kind          string          `json:"kind"`
	Transport     string          `json:"transport_protocol"`
}

func (c *Client) PeerList(ctx context.Context) ([]RawPeer, error) {
	var infos []peerInfo
	if err := c.rpc.CallContext(ctx, &infos, "getpeerinfo"); err != nil {
		return nil, fmt.Errorf("getpeerinfo: %w", err)
	}
	peers := make([]RawPeer, 0, len(infos))
	for _, p := range infos {
		peers = append(peers, RawPeer{
			Address:       p.Address,
			Services:      parseServices(p.Services),
			UserAgent:     p.UserAgent,
			InitialHeight: p.InitialHeight,
			State:         p.State,
			Kind:          strings.ToLower(p.Kind),
			Transport:     p.Transport,
		})
	}
	return peers, nil
}

// ConnectPeer asks the node to add addr as a manual peer. A null result is
// treated as accepted.
func (c *Client) ConnectPeer(ctx context.Context, addr string) (bool, error) {
	var res json.RawMessage
	if err := c.rpc.CallContext(ctx, &res, "addnode", addr, "add"); err != nil {
		return false, fmt.Errorf("addnode %s: %w", addr, err)
	}
	var accepted bool
	if len(res) == 0 || string(res) == "null" || json.Unmarshal(res, &accepted) != nil {
		return true, nil
	}
	return accepted, nil
}

func (c *Client) DisconnectPeer(ctx context.Context, addr string) error {
	if err := c.rpc.CallContext(ctx, nil, "disconnectnode", addr); err != nil {
		return fmt.Errorf("disconnectnode %s: %w", addr, err)
	}
	return nil
}

func (c *Client) BlockHashAt(ctx context.Context, height uint32) (string, error) {
	var hash string
	if err := c.rpc.CallContext(ctx, &hash, "getblockhash", height); err != nil {
		return "", fmt.Errorf("getblockhash %d: %w", height, err)
	}
	return hash, nil
}

type blockInfo struct {
	Hash       string   `json:"hash"`
	Height     uint32   `json:"height"`
	Version    int32    `json:"version"`
	PrevHash   string   `json:"previousblockhash"`
	MerkleRoot string   `json:"merkleroot"`
	Time       int64    `json:"time"`
	Bits       string   `json:"bits"`
	Nonce      uint32   `json:"nonce"`
	Tx         []string `json:"tx"`
	Size       uint32   `json:"size"`
	Weight     uint32   `json:"weight"`
}

func (c *Client) GetBlock(ctx context.Context, hash string) (*Block, error) {
	var info *blockInfo
	if err := c.rpc.CallContext(ctx, &info, "getblock", hash, 1); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getblock %s: %w", hash, err)
	}
	if info == nil {
		return nil, nil
	}
	return &Block{
		Hash:       info.Hash,
		Height:     info.Height,
		Version:    info.Version,
		PrevHash:   info.PrevHash,
		MerkleRoot: info.MerkleRoot,
		Time:       time.Unix(info.Time, 0).UTC(),
		Bits:       info.Bits,
		Nonce:      info.Nonce,
		TxIDs:      info.Tx,
		Size:       info.Size,
		Weight:     info.Weight,
	}, nil
}

// Stop asks the node to exit.
func (c *Client) Stop(ctx context.Context) error {
	if err := c.rpc.CallContext(ctx, nil, "stop"); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	code := rpcErr.ErrorCode()
	return code == rpcInvalidAddressOrKey || code == rpcInvalidParameter
}

func decodeHash(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// serviceFlags maps the names florestad prints for service bits.
var serviceFlags = map[string]uint64{
	"NETWORK":         1 << 0,
	"GETUTXO":         1 << 1,
	"BLOOM":           1 << 2,
	"WITNESS":         1 << 3,
	"COMPACT_FILTERS": 1 << 6,
	"NETWORK_LIMITED": 1 << 10,
	"P2P_V2":          1 << 11,
	"UTREEXO":         1 << 24,
	"UTREEXO_FILTER":  1 << 25,
}

// parseServices accepts a number, a decimal/hex string, or florestad's
// "ServiceFlags(NETWORK|WITNESS|...)" rendering.
func parseServices(raw json.RawMessage) uint64 {
	if len(raw) == 0 {
		return 0
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64); err == nil && strings.HasPrefix(s, "0x") {
		return v
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "ServiceFlags("), ")")
	var flags uint64
	for _, name := range strings.Split(s, "|") {
		name = strings.TrimSpace(name)
		if bit, ok := serviceFlags[name]; ok {
			flags |= bit
			continue
		}
		if v, err := strconv.ParseUint(strings.TrimPrefix(name, "0x"), 16, 64); err == nil {
			flags |= v
		}
	}
	return flags
}
