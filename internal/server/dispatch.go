package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TylerWon/chat-rooms/internal/chat"
	"github.com/TylerWon/chat-rooms/internal/metrics"
	"github.com/TylerWon/chat-rooms/internal/wire"
)

type eventKind int

const (
	evConnect eventKind = iota
	evMessage
	evDisconnect
	evProtocol
)

// event is the unit of work delivered to the dispatcher goroutine.
type event struct {
	kind eventKind
	sess *session
	msg  wire.Message
	err  error
}

// state bundles everything the dispatcher owns: the session set, the room
// registry, and the user registry. Nothing else may touch it.
type state struct {
	sessions map[chat.UID]*session
	rooms    *chat.Rooms
	users    *chat.Users
}

// dispatch is the single logical executor. Handlers run to completion
// between channel receives, which is what keeps the registries
// consistent without locks.
func (s *Server) dispatch(ctx context.Context) {
	defer s.wg.Done()
	st := &state{
		sessions: make(map[chat.UID]*session),
		rooms:    chat.NewRooms(),
		users:    chat.NewUsers(),
	}
	for {
		select {
		case <-ctx.Done():
			s.closeAll(st)
			return
		case <-s.quit:
			s.closeAll(st)
			return
		case ev := <-s.events:
			switch ev.kind {
			case evConnect:
				s.handleConnect(st, ev.sess)
			case evMessage:
				s.handleMessage(st, ev.sess, ev.msg)
			case evDisconnect:
				s.handleDisconnect(st, ev.sess, ev.err)
			case evProtocol:
				s.handleProtocol(st, ev.sess, ev.err)
			}
		}
	}
}

func (s *Server) closeAll(st *state) {
	for _, sess := range st.sessions {
		_ = sess.conn.Close()
	}
}

func (s *Server) handleConnect(st *state, sess *session) {
	if _, err := st.users.Add(sess.uid); err != nil {
		sess.logger.Error("user_register_failed", "error", err)
		_ = sess.conn.Close()
		return
	}
	st.sessions[sess.uid] = sess
	s.totalConnected.Add(1)
	s.activeUsers.Store(int64(st.users.Len()))
	metrics.SetActiveUsers(st.users.Len())
	sess.logger.Info("client_connected")
}

func (s *Server) handleMessage(st *state, sess *session, msg wire.Message) {
	if _, ok := st.sessions[sess.uid]; !ok {
		// Already terminated; the reader raced the cleanup.
		return
	}
	u, err := st.users.Find(sess.uid)
	if err != nil {
		sess.logger.Error("user_lookup_failed", "error", err)
		s.terminate(st, sess)
		return
	}
	switch m := msg.(type) {
	case wire.Chat:
		s.handleChat(st, sess, u, m)
	case wire.Name:
		s.handleName(sess, u, m)
	case wire.Join:
		s.handleJoin(st, sess, u, m)
	default:
		// REPLY is server to client only; receiving one is a protocol
		// violation like any unknown tag.
		s.handleProtocol(st, sess, fmt.Errorf("%w: client sent %s", ErrProtocol, msg.Type()))
	}
}

// handleChat relays a chat message to every member of the sender's room,
// stamping the server's wall clock and the sender's registered name over
// whatever the client put in those fields.
func (s *Server) handleChat(st *state, sess *session, u *chat.User, m wire.Chat) {
	metrics.IncChatRx()
	if u.Room == chat.InvalidRoom {
		s.reply(sess, "you are not in a chat room: type '/join [room number]' to join a room")
		return
	}
	out := wire.Chat{
		Timestamp: uint32(time.Now().Unix()),
		Name:      u.Name,
		Text:      m.Text,
	}
	frame, err := wire.Encode(out)
	if err != nil {
		sess.logger.Error("chat_encode_failed", "error", err)
		return
	}
	room, err := st.rooms.Get(u.Room)
	if err != nil {
		sess.logger.Error("room_lookup_failed", "room", u.Room, "error", err)
		return
	}
	metrics.SetBroadcastFanout(room.Len())
	sent := 0
	for _, uid := range room.Members() {
		rcpt, ok := st.sessions[uid]
		if !ok {
			continue
		}
		if err := wire.WriteFrame(rcpt.conn, frame); err != nil {
			// Recipients already served stay served; the rest miss this
			// message.
			wrap := fmt.Errorf("%w: %v", ErrConnWrite, err)
			metrics.IncError(mapErrToMetric(wrap))
			s.setError(wrap)
			rcpt.logger.Error("chat_send_failed", "error", err)
			break
		}
		sent++
	}
	metrics.AddChatTx(sent)
	sess.logger.Debug("chat_relayed", "room", room.ID, "recipients", sent)
}

func (s *Server) handleName(sess *session, u *chat.User, m wire.Name) {
	u.Name = m.Name
	sess.logger.Info("name_changed", "name", u.Name)
	s.reply(sess, fmt.Sprintf("set name to %s", u.Name))
}

func (s *Server) handleJoin(st *state, sess *session, u *chat.User, m wire.Join) {
	room, err := st.rooms.Get(m.Room)
	if err != nil {
		s.reply(sess, fmt.Sprintf("room %d does not exist", m.Room))
		return
	}
	if u.Room == room.ID {
		s.reply(sess, fmt.Sprintf("you are already in room %d", room.ID))
		return
	}
	if u.Room != chat.InvalidRoom {
		cur, err := st.rooms.Get(u.Room)
		if err == nil {
			if err := st.rooms.Remove(cur, u); err != nil {
				sess.logger.Error("room_remove_failed", "room", cur.ID, "error", err)
			} else {
				metrics.SetRoomOccupancy(cur.ID, cur.Len())
			}
		}
	}
	if err := st.rooms.Add(room, u); err != nil {
		if errors.Is(err, chat.ErrRoomFull) {
			// The user stays roomless; the earlier removal is not rolled
			// back.
			s.reply(sess, fmt.Sprintf("room %d is full", room.ID))
			return
		}
		sess.logger.Error("room_add_failed", "room", room.ID, "error", err)
		return
	}
	metrics.IncJoin()
	metrics.SetRoomOccupancy(room.ID, room.Len())
	sess.logger.Info("room_joined", "room", room.ID)
	s.reply(sess, fmt.Sprintf("you have joined room %d", room.ID))
}

func (s *Server) handleDisconnect(st *state, sess *session, err error) {
	if _, ok := st.sessions[sess.uid]; !ok {
		return
	}
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrConnRead, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		sess.logger.Warn("client_read_error", "error", err)
	}
	s.terminate(st, sess)
}

// handleProtocol isolates a malformed frame to the offending connection;
// the server keeps serving everyone else.
func (s *Server) handleProtocol(st *state, sess *session, err error) {
	if _, ok := st.sessions[sess.uid]; !ok {
		return
	}
	wrap := fmt.Errorf("%w: %v", ErrProtocol, err)
	metrics.IncError(mapErrToMetric(wrap))
	s.setError(wrap)
	sess.logger.Warn("protocol_error", "error", err)
	s.terminate(st, sess)
}

// terminate removes every trace of the connection: room membership, user
// record, session entry, and finally the socket itself.
func (s *Server) terminate(st *state, sess *session) {
	u, err := st.users.Find(sess.uid)
	if err == nil && u.Room != chat.InvalidRoom {
		if room, rerr := st.rooms.Get(u.Room); rerr == nil {
			if rerr := st.rooms.Remove(room, u); rerr != nil {
				sess.logger.Error("room_remove_failed", "room", room.ID, "error", rerr)
			} else {
				metrics.SetRoomOccupancy(room.ID, room.Len())
			}
		}
	}
	if err := st.users.Delete(sess.uid); err != nil {
		sess.logger.Error("user_delete_failed", "error", err)
	}
	delete(st.sessions, sess.uid)
	_ = sess.conn.Close()
	s.totalDisconnected.Add(1)
	s.activeUsers.Store(int64(st.users.Len()))
	metrics.SetActiveUsers(st.users.Len())
	sess.logger.Info("client_disconnected")
}

// reply sends a short status frame to one client. Reply text is capped
// the same way the wire format caps it; over-long text is truncated
// rather than dropped.
func (s *Server) reply(sess *session, text string) {
	if len(text) > wire.ReplyLimit-1 {
		sess.logger.Warn("reply_truncated", "reply", text)
		text = text[:wire.ReplyLimit-1]
	}
	if err := wire.WriteMessage(sess.conn, wire.Reply{Text: text}); err != nil {
		wrap := fmt.Errorf("%w: %v", ErrConnWrite, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		sess.logger.Error("reply_send_failed", "error", err)
		return
	}
	metrics.IncReply()
}
