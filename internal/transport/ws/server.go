package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"narcosim.ai/internal/protocol"
	"narcosim.ai/internal/sim/engine"
)

// Server exposes one engine over websocket. A game has one player, so only
// one session may be attached at a time.
type Server struct {
	engine *engine.Engine
	log    *log.Logger

	upgrader  websocket.Upgrader
	cmdSchema *jsonschema.Schema

	active   atomic.Bool
	sessions atomic.Uint64
}

func NewServer(e *engine.Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[ws] ", log.LstdFlags)
	}
	s := &Server{
		engine: e,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

// ValidateCommands rejects inbound CMD messages that fail cmd.schema.json
// before they reach the engine.
func (s *Server) ValidateCommands(schemaDir string) error {
	sch, err := jsonschema.Compile(filepath.Join(schemaDir, "cmd.schema.json"))
	if err != nil {
		return fmt.Errorf("compile cmd schema: %w", err)
	}
	s.cmdSchema = sch
	return nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.active.CompareAndSwap(false, true) {
			_ = writeJSON(conn, protocol.NewError("", protocol.ErrBusy, "a session is already attached to this game"))
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "busy"), time.Now().Add(time.Second))
			return
		}
		defer s.active.Store(false)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sessionID, ok := s.handshake(ctx, conn)
		if !ok {
			return
		}
		s.log.Printf("session %s attached", sessionID)
		defer s.log.Printf("session %s detached", sessionID)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := s.handle(ctx, conn, msg); err != nil {
				return
			}
		}
	}
}

// handle answers one inbound message. A returned error ends the session.
func (s *Server) handle(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, "malformed json"))
	}
	if base.Type != protocol.TypeCmd {
		return writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, "unexpected message type "+base.Type))
	}
	if s.cmdSchema != nil {
		var generic any
		if err := json.Unmarshal(msg, &generic); err == nil {
			if err := s.cmdSchema.Validate(generic); err != nil {
				return writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, err.Error()))
			}
		}
	}
	var cmd protocol.CmdMsg
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, "bad CMD: "+err.Error()))
	}
	if cmd.ProtocolVersion != protocol.Version {
		return writeJSON(conn, protocol.NewError(cmd.ID, protocol.ErrProtoBadRequest, "bad protocol_version"))
	}

	rep, err := s.submit(ctx, &cmd.Command)
	if err != nil {
		return err
	}
	if err := writeJSON(conn, protocol.NewResult(cmd.ID, *rep.Result)); err != nil {
		return err
	}
	return writeJSON(conn, protocol.NewState(rep.View))
}

// submit hands a request to the engine loop and waits for its reply. A nil
// cmd asks for the current view only.
func (s *Server) submit(ctx context.Context, cmd *engine.Command) (engine.Reply, error) {
	resp := make(chan engine.Reply, 1)
	select {
	case s.engine.Inbox() <- engine.Request{Cmd: cmd, Resp: resp}:
	case <-ctx.Done():
		return engine.Reply{}, ctx.Err()
	}
	select {
	case rep := <-resp:
		return rep, nil
	case <-ctx.Done():
		return engine.Reply{}, ctx.Err()
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = writeJSON(conn, protocol.NewError("", protocol.ErrProtoHandshake, "expected HELLO"))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if !supports(hello) {
		_ = writeJSON(conn, protocol.NewError("", protocol.ErrProtoHandshake, "bad protocol_version"))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", false
	}

	rep, err := s.submit(ctx, nil)
	if err != nil {
		return "", false
	}
	sessionID := fmt.Sprintf("S%d", s.sessions.Add(1))
	if err := writeJSON(conn, s.welcome(sessionID, rep.View)); err != nil {
		return "", false
	}
	if err := writeJSON(conn, protocol.NewState(rep.View)); err != nil {
		return "", false
	}
	return sessionID, true
}

func supports(h protocol.HelloMsg) bool {
	if h.ProtocolVersion == protocol.Version {
		return true
	}
	for _, v := range h.SupportedVersions {
		if v == protocol.Version {
			return true
		}
	}
	return false
}

func (s *Server) welcome(sessionID string, v engine.View) protocol.WelcomeMsg {
	cats := s.engine.Catalogs()
	tune := s.engine.Tuning()
	w := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		GameID:          s.engine.GameID(),
		Game: protocol.GameParams{
			TargetWorth: tune.Win.TargetNetWorth,
			HeatMax:     float64(tune.Heat.Max),
		},
		Catalogs: protocol.CatalogDigests{
			Commodities: cats.Commodities.Digest,
			Regions:     cats.Regions.Digest,
			Currencies:  cats.Currencies.Digest,
			Rivals:      cats.Rivals.Digest,
			Skills:      cats.Skills.Digest,
			Events:      cats.Events.Digest,
		},
		Commands: append([]string(nil), engine.CommandTypes...),
	}
	if v.State != nil {
		w.Game.Seed = v.State.Seed
		w.Game.Day = v.State.Day
		w.Game.LegacyGoal = v.State.LegacyGoal
	}
	return w
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
