// Package types holds shared data structures used across bonsai packages.
// It has no dependencies so both the exporter and its clients can use it.
package types

// StatusResponse is the JSON payload returned by the /status endpoint.
type StatusResponse struct {
	Status          string           `json:"status"`
	Network         string           `json:"network"`
	LastError       string           `json:"last_error,omitempty"`
	InIBD           bool             `json:"in_ibd"`
	HeaderHeight    uint32           `json:"header_height"`
	ValidatedHeight uint32           `json:"validated_height"`
	SyncProgress    float64          `json:"sync_progress"`
	UserAgent       string           `json:"user_agent,omitempty"`
	UptimeSeconds   float64          `json:"uptime_seconds"`
	Accumulator     *AccumulatorInfo `json:"accumulator,omitempty"`
	Peers           []PeerSummary    `json:"peers"`
	LastBlock       *BlockSummary    `json:"last_block,omitempty"`
	LogVersion      uint64           `json:"log_version"`
}

// AccumulatorInfo summarizes the Utreexo forest.
type AccumulatorInfo struct {
	Leaves    uint64   `json:"leaves"`
	Roots     []string `json:"roots"`
	SizeBytes int      `json:"size_bytes"`
	Export    string   `json:"export"`
}

// PeerSummary is one connected peer.
type PeerSummary struct {
	Address        string `json:"address"`
	Implementation string `json:"implementation"`
	UserAgent      string `json:"user_agent"`
	Direction      string `json:"direction"`
	Transport      string `json:"transport"`
	Services       string `json:"services"`
	InitialHeight  uint32 `json:"initial_height"`
}

// BlockSummary is the most recently observed chain tip.
type BlockSummary struct {
	Height uint32 `json:"height"`
	Hash   string `json:"hash"`
}
