package client

import (
	"strings"
	"testing"

	"github.com/TylerWon/chat-rooms/internal/wire"
	"github.com/google/go-cmp/cmp"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Command
		wantErr bool
	}{
		{"name", "/name alice", Command{Kind: CmdName, Name: "alice"}, false},
		{"nameMultiWord", "/name alice the great", Command{Kind: CmdName, Name: "alice the great"}, false},
		{"nameCollapsesSpaces", "/name   alice   b", Command{Kind: CmdName, Name: "alice b"}, false},
		{"nameMissing", "/name", Command{}, true},
		{"nameTooLong", "/name " + strings.Repeat("x", wire.NameLimit), Command{}, true},
		{"nameMaxLen", "/name " + strings.Repeat("x", wire.NameLimit-1), Command{Kind: CmdName, Name: strings.Repeat("x", wire.NameLimit-1)}, false},
		{"join", "/join 3", Command{Kind: CmdJoin, Room: 3}, false},
		{"joinZero", "/join 0", Command{Kind: CmdJoin, Room: 0}, false},
		{"joinMissing", "/join", Command{}, true},
		{"joinNotANumber", "/join lobby", Command{}, true},
		{"joinNegative", "/join -1", Command{}, true},
		{"joinOverflow", "/join 300", Command{}, true},
		{"exit", "/exit", Command{Kind: CmdExit}, false},
		{"exitTrailing", "/exit now", Command{Kind: CmdExit}, false},
		{"unknown", "/kick bob", Command{}, true},
		{"commandTooLong", "/rename bob", Command{}, true},
		{"bareSlash", "/", Command{}, true},
		{"slashSpaces", "/   ", Command{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCommand(tc.line)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
