package client

import (
	"fmt"
	"io"
	"time"

	"github.com/TylerWon/chat-rooms/internal/wire"
	"github.com/fatih/color"
)

// Renderer prints server frames to the terminal. When Interactive is
// set, each submitted input line is erased so only server-echoed frames
// occupy the scrollback.
type Renderer struct {
	out         io.Writer
	interactive bool
	reply       *color.Color
	local       *color.Color
}

func NewRenderer(out io.Writer, interactive, noColor bool) *Renderer {
	reply := color.New(color.FgYellow)
	local := color.New(color.FgRed)
	if noColor {
		reply.DisableColor()
		local.DisableColor()
	}
	return &Renderer{out: out, interactive: interactive, reply: reply, local: local}
}

// Chat prints "(HH:MM) NAME: TEXT" with the frame's timestamp in local time.
func (r *Renderer) Chat(m wire.Chat) {
	ts := time.Unix(int64(m.Timestamp), 0).Local()
	fmt.Fprintf(r.out, "(%02d:%02d) %s: %s\n", ts.Hour(), ts.Minute(), m.Name, m.Text)
}

// Reply prints a server status line as "** TEXT **".
func (r *Renderer) Reply(m wire.Reply) {
	r.reply.Fprintf(r.out, "** %s **\n", m.Text)
}

// Local prints a client-side error, e.g. a rejected command.
func (r *Renderer) Local(text string) {
	r.local.Fprintln(r.out, text)
}

// ClearPrev moves the cursor up one line and clears it.
func (r *Renderer) ClearPrev() {
	if !r.interactive {
		return
	}
	fmt.Fprint(r.out, "\033[A\033[2K")
}
