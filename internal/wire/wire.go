package wire

// Type tags a message on the wire. The first payload byte of every frame.
type Type uint8

const (
	TypeChat Type = iota
	TypeJoin
	TypeName
	TypeReply
)

func (t Type) String() string {
	switch t {
	case TypeChat:
		return "chat"
	case TypeJoin:
		return "join"
	case TypeName:
		return "name"
	case TypeReply:
		return "reply"
	}
	return "unknown"
}

// Wire field widths. Multi-byte integers are big-endian.
const (
	lenSize       = 4
	typeSize      = 1
	timestampSize = 4
	nameLenSize   = 1
	textLenSize   = 2
	replyLenSize  = 1
	roomIDSize    = 1
)

const (
	// HeaderSize is the length prefix; the prefix counts itself.
	HeaderSize = lenSize

	// MinFrameSize is the smallest legal frame: prefix plus type byte.
	MinFrameSize = lenSize + typeSize

	// String limits count the trailing NUL carried on the wire.
	NameLimit  = 50
	TextLimit  = 1000
	ReplyLimit = 100

	// MaxFrameSize is a CHAT carrying a maximal name and text.
	MaxFrameSize = MinFrameSize + timestampSize + nameLenSize + NameLimit + textLenSize + TextLimit
)

// Message is the tagged union of the four wire variants.
type Message interface {
	Type() Type
}

// Chat carries one room message. The server stamps Timestamp and Name on
// relay; clients only fill Text.
type Chat struct {
	Timestamp uint32 // Unix seconds
	Name      string
	Text      string
}

// Join asks the server to move the sender into a room. Client to server only.
type Join struct {
	Room uint8
}

// Name sets the sender's display name. Client to server only.
type Name struct {
	Name string
}

// Reply is a short status line from the server. Server to client only.
type Reply struct {
	Text string
}

func (Chat) Type() Type  { return TypeChat }
func (Join) Type() Type  { return TypeJoin }
func (Name) Type() Type  { return TypeName }
func (Reply) Type() Type { return TypeReply }
