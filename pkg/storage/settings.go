package storage

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/salahayoub/bonsai/pkg/engine"
)

// NodeSettings are the user-editable node options for one network.
type NodeSettings struct {
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
}

// DefaultNodeSettings mirrors florestad's defaults.
func DefaultNodeSettings() NodeSettings {
	return NodeSettings{
		AssumeUtreexo:   true,
		FraudProofs:     true,
		Backfill:        true,
		AllowV1Fallback: true,
	}
}

// Setting keys, as used by Set and Entries.
const (
	KeyAssumeUtreexo   = "assume_utreexo"
	KeyFraudProofs     = "pow_fraud_proofs"
	KeyBackfill        = "backfill"
	KeyAllowV1Fallback = "allow_v1_fallback"
	KeyDisableDNSSeeds = "disable_dns_seeds"
	KeyUserAgent       = "user_agent"
	KeyFixedPeer       = "fixed_peer"
	KeyProxy           = "proxy"
	KeyMaxBanScore     = "max_banscore"
	KeyMaxOutbound     = "max_outbound"
	KeyMaxInflight     = "max_inflight"
)

// Keys lists every setting key in display order.
func Keys() []string {
	return []string{
		KeyAssumeUtreexo, KeyFraudProofs, KeyBackfill, KeyAllowV1Fallback,
		KeyDisableDNSSeeds, KeyUserAgent, KeyFixedPeer, KeyProxy,
		KeyMaxBanScore, KeyMaxOutbound, KeyMaxInflight,
	}
}

func (s *NodeSettings) boolFields() map[string]*bool {
	return map[string]*bool{
		KeyAssumeUtreexo:   &s.AssumeUtreexo,
		KeyFraudProofs:     &s.FraudProofs,
		KeyBackfill:        &s.Backfill,
		KeyAllowV1Fallback: &s.AllowV1Fallback,
		KeyDisableDNSSeeds: &s.DisableDNSSeeds,
	}
}

func (s *NodeSettings) stringFields() map[string]*string {
	return map[string]*string{
		KeyUserAgent: &s.UserAgent,
		KeyFixedPeer: &s.FixedPeer,
		KeyProxy:     &s.Proxy,
	}
}

func (s *NodeSettings) uintFields() map[string]*uint32 {
	return map[string]*uint32{
		KeyMaxBanScore: &s.MaxBanScore,
		KeyMaxOutbound: &s.MaxOutbound,
		KeyMaxInflight: &s.MaxInflight,
	}
}

// Set parses value into the setting named key.
func (s *NodeSettings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	if p, ok := s.boolFields()[key]; ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected true or false, got %q", key, value)
		}
		*p = b
		return nil
	}
	if p, ok := s.stringFields()[key]; ok {
		*p = value
		return nil
	}
	if p, ok := s.uintFields()[key]; ok {
		if value == "" {
			*p = 0
			return nil
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: expected a non-negative integer, got %q", key, value)
		}
		*p = uint32(n)
		return nil
	}
	return fmt.Errorf("unknown setting %q", key)
}

// Get renders the setting named key.
func (s *NodeSettings) Get(key string) (string, bool) {
	if p, ok := s.boolFields()[key]; ok {
		return strconv.FormatBool(*p), true
	}
	if p, ok := s.stringFields()[key]; ok {
		return *p, true
	}
	if p, ok := s.uintFields()[key]; ok {
		return strconv.FormatUint(uint64(*p), 10), true
	}
	return "", false
}

// Validate checks the address-shaped settings.
func (s NodeSettings) Validate() error {
	for key, addr := range map[string]string{KeyFixedPeer: s.FixedPeer, KeyProxy: s.Proxy} {
		if addr == "" {
			continue
		}
		host, port, err := net.SplitHostPort(addr)
		if err != nil || host == "" {
			return fmt.Errorf("%s: %q is not host:port", key, addr)
		}
		if p, err := strconv.ParseUint(port, 10, 16); err != nil || p == 0 {
			return fmt.Errorf("%s: bad port in %q", key, addr)
		}
	}
	return nil
}

// Apply copies the settings onto cfg.
func (s NodeSettings) Apply(cfg *engine.NodeConfig) {
	cfg.AssumeUtreexo = s.AssumeUtreexo
	cfg.FraudProofs = s.FraudProofs
	cfg.Backfill = s.Backfill
	cfg.AllowV1Fallback = s.AllowV1Fallback
	cfg.DisableDNSSeeds = s.DisableDNSSeeds
	cfg.UserAgent = s.UserAgent
	cfg.FixedPeer = s.FixedPeer
	cfg.Proxy = s.Proxy
	cfg.MaxBanScore = s.MaxBanScore
	cfg.MaxOutbound = s.MaxOutbound
	cfg.MaxInflight = s.MaxInflight
}

func (s *NodeSettings) toStruct() (*structpb.Struct, error) {
	fields := make(map[string]any, len(Keys()))
	for k, p := range s.boolFields() {
		fields[k] = *p
	}
	for k, p := range s.stringFields() {
		fields[k] = *p
	}
	for k, p := range s.uintFields() {
		fields[k] = float64(*p)
	}
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build settings message: %w", err)
	}
	return msg, nil
}

// fromStruct overlays the fields present in msg. Unknown fields are
// ignored so older binaries can read newer databases.
func (s *NodeSettings) fromStruct(msg *structpb.Struct) error {
	for k, p := range s.boolFields() {
		if v, ok := msg.Fields[k]; ok {
			*p = v.GetBoolValue()
		}
	}
	for k, p := range s.stringFields() {
		if v, ok := msg.Fields[k]; ok {
			*p = v.GetStringValue()
		}
	}
	for k, p := range s.uintFields() {
		v, ok := msg.Fields[k]
		if !ok {
			continue
		}
		n := v.GetNumberValue()
		if n < 0 || n > math.MaxUint32 || n != math.Trunc(n) {
			return fmt.Errorf("setting %s out of range: %v", k, n)
		}
		*p = uint32(n)
	}
	return nil
}
