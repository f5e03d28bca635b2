package tui

import (
	"errors"
	"testing"

	"github.com/salahayoub/bonsai/pkg/node"
)

// TestParseCommand covers valid and invalid command lines.
func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    Command
		wantErr error
	}{
		{input: "start", want: Command{Type: CommandStart}},
		{input: "  STOP  ", want: Command{Type: CommandStop}},
		{input: "shutdown", want: Command{Type: CommandStop}},
		{input: "Restart", want: Command{Type: CommandRestart}},
		{input: "clear", want: Command{Type: CommandClear}},
		{input: "copy", want: Command{Type: CommandCopy}},
		{input: "connect 1.2.3.4:8333", want: Command{Type: CommandConnect, Addr: "1.2.3.4:8333"}},
		{input: "disconnect [::1]:38333", want: Command{Type: CommandDisconnect, Addr: "[::1]:38333"}},
		{input: "block 840000", want: Command{Type: CommandBlock, Height: 840000}},

		{input: "", wantErr: ErrEmptyCommand},
		{input: "   ", wantErr: ErrEmptyCommand},
		{input: "get key", wantErr: ErrUnknownCommand},
		{input: "connect", wantErr: ErrMissingArgument},
		{input: "block", wantErr: ErrMissingArgument},
		{input: "start now", wantErr: ErrExtraArgument},
		{input: "block 1 2", wantErr: ErrExtraArgument},
		{input: "connect 1.2.3.4", wantErr: node.ErrInvalidPeerAddress},
		{input: "block -1", wantErr: node.ErrInvalidHeight},
	}

	for _, tt := range tests {
		got, err := ParseCommand(tt.input)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseCommand(%q): expected %v, got %v", tt.input, tt.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCommand(%q): unexpected error %v", tt.input, err)
			continue
		}
		if *got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.input, *got, tt.want)
		}
	}
}

// TestCommand_Messages verifies the messages each command produces.
func TestCommand_Messages(t *testing.T) {
	connect := (&Command{Type: CommandConnect, Addr: "a:1"}).Messages()
	if len(connect) != 2 {
		t.Fatalf("Expected 2 messages for connect, got %v", connect)
	}
	if c, ok := connect[0].(node.AddPeerInputChanged); !ok || c.Input != "a:1" {
		t.Errorf("Expected AddPeerInputChanged first, got %v", connect[0])
	}
	if _, ok := connect[1].(node.AddPeer); !ok {
		t.Errorf("Expected AddPeer second, got %v", connect[1])
	}

	block := (&Command{Type: CommandBlock, Height: 5}).Messages()
	if f, ok := block[0].(node.FetchBlock); !ok || f.Height != 5 {
		t.Errorf("Expected FetchBlock 5, got %v", block)
	}

	if _, ok := (&Command{Type: CommandStop}).Messages()[0].(node.Shutdown); !ok {
		t.Error("Expected stop to send Shutdown")
	}
}
