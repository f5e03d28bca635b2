package node

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/salahayoub/bonsai/pkg/engine"
)

// PeerInformation is a classified peer record.
type PeerInformation struct {
	Address       string
	Services      uint64
	UserAgent     string
	Impl          Impl
	InitialHeight uint32
	State         string
	Direction     string
	Transport     string
}

// NodeStatistics is a point-in-time snapshot of the node. It is replaced
// wholesale on every fetch and never mutated after publication.
type NodeStatistics struct {
	InIBD             bool
	HeaderHeight      uint32
	ValidatedHeight   uint32
	Accumulator       engine.Accumulator
	AccumulatorExport string
	Peers             []PeerInformation
	UserAgent         string
	Uptime            time.Duration
	FetchedAt         time.Time
}

// SyncProgress is validated/header height in [0, 1].
func (s *NodeStatistics) SyncProgress() float64 {
	if s.HeaderHeight == 0 {
		return 0
	}
	p := float64(s.ValidatedHeight) / float64(s.HeaderHeight)
	if p > 1 {
		return 1
	}
	return p
}

// AccumulatorSize is the size of the roots in bytes.
func (s *NodeStatistics) AccumulatorSize() int {
	return len(s.Accumulator.Roots) * 32
}

// Clone returns a deep copy.
func (s *NodeStatistics) Clone() *NodeStatistics {
	c := *s
	c.Accumulator.Roots = append([][32]byte(nil), s.Accumulator.Roots...)
	c.Peers = append([]PeerInformation(nil), s.Peers...)
	return &c
}

// WithoutPeers returns a copy with the peer list dropped.
func (s *NodeStatistics) WithoutPeers() *NodeStatistics {
	c := s.Clone()
	c.Peers = nil
	return c
}

// ExportAccumulator serializes the accumulator as a Utreexo stump: leaf
// count and root count as little-endian u64, then the roots, hex encoded.
func ExportAccumulator(acc engine.Accumulator) string {
	buf := make([]byte, 16, 16+32*len(acc.Roots))
	binary.LittleEndian.PutUint64(buf[0:8], acc.Leaves)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(acc.Roots)))
	for _, r := range acc.Roots {
		buf = append(buf, r[:]...)
	}
	return hex.EncodeToString(buf)
}

// FetchStatistics reads one snapshot from eng. Reads happen in a fixed
// order and any failure aborts the whole fetch. A zero start yields zero
// uptime.
func FetchStatistics(ctx context.Context, eng engine.Engine, classifier *Classifier, start, now time.Time) (*NodeStatistics, error) {
	if classifier == nil {
		classifier = defaultClassifier
	}

	ibd, err := eng.InIBD(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ibd state: %w", err)
	}
	headers, err := eng.HeaderHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("read header height: %w", err)
	}
	validated, err := eng.ValidatedHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("read validated height: %w", err)
	}
	acc, err := eng.AccumulatorDigest(ctx)
	if err != nil {
		return nil, fmt.Errorf("read accumulator: %w", err)
	}
	ua, err := eng.UserAgent(ctx)
	if err != nil {
		return nil, fmt.Errorf("read user agent: %w", err)
	}
	raw, err := eng.PeerList(ctx)
	if err != nil {
		return nil, fmt.Errorf("read peers: %w", err)
	}

	var uptime time.Duration
	if !start.IsZero() {
		uptime = now.Sub(start)
	}

	peers := make([]PeerInformation, 0, len(raw))
	for _, p := range raw {
		peers = append(peers, PeerInformation{
			Address:       p.Address,
			Services:      p.Services,
			UserAgent:     p.UserAgent,
			Impl:          classifier.Classify(p.UserAgent),
			InitialHeight: p.InitialHeight,
			State:         p.State,
			Direction:     p.Kind,
			Transport:     p.Transport,
		})
	}

	return &NodeStatistics{
		InIBD:             ibd,
		HeaderHeight:      headers,
		ValidatedHeight:   validated,
		Accumulator:       acc,
		AccumulatorExport: ExportAccumulator(acc),
		Peers:             peers,
		UserAgent:         ua,
		Uptime:            uptime,
		FetchedAt:         now,
	}, nil
}
