package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TylerWon/chat-rooms/internal/wire"
)

// CommandLimit caps the command word after the slash, matching the
// original protocol's parser.
const CommandLimit = 5

type CommandKind int

const (
	CmdName CommandKind = iota
	CmdJoin
	CmdExit
)

// Command is one parsed slash command.
type Command struct {
	Kind CommandKind
	Name string // CmdName
	Room uint8  // CmdJoin
}

// ParseCommand parses a line starting with '/'. Supported commands:
// /name NAME, /join ID, /exit. Anything else is an error; the caller
// reports it locally and sends nothing.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("not a valid command")
	}
	word := fields[0]
	if len(word) > CommandLimit {
		return Command{}, fmt.Errorf("not a valid command: /%s", word)
	}
	switch word {
	case "name":
		if len(fields) < 2 {
			return Command{}, fmt.Errorf("name not provided")
		}
		name := strings.Join(fields[1:], " ")
		if len(name) > wire.NameLimit-1 {
			return Command{}, fmt.Errorf("name longer than %d bytes", wire.NameLimit-1)
		}
		return Command{Kind: CmdName, Name: name}, nil
	case "join":
		if len(fields) < 2 {
			return Command{}, fmt.Errorf("room id not provided")
		}
		id, err := strconv.ParseUint(fields[1], 10, 8)
		if err != nil {
			return Command{}, fmt.Errorf("invalid room id %q", fields[1])
		}
		return Command{Kind: CmdJoin, Room: uint8(id)}, nil
	case "exit":
		return Command{Kind: CmdExit}, nil
	default:
		return Command{}, fmt.Errorf("not a valid command: /%s", word)
	}
}
