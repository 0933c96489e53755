package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"respawnbradley.gg/internal/commands"
	"respawnbradley.gg/internal/players"
	"respawnbradley.gg/internal/protocol"
	"respawnbradley.gg/internal/respawn"
)

const outQueue = 32

type Options struct {
	Table        *commands.Table
	Players      *players.Directory
	Schemas      *protocol.Schemas
	ConsoleToken string
	// PlayerSecret keys player HELLO tokens. Empty rejects player sessions.
	PlayerSecret string
	ServerName   string
	Logger       *log.Logger
}

// Server speaks the chat/console protocol: one HELLO, then any number of CMD
// messages, each answered by zero or more REPLY messages and one RESULT.
type Server struct {
	opts Options
	log  *log.Logger

	sessions atomic.Int64
	upgrader websocket.Upgrader
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.ServerName == "" {
		opts.ServerName = "respawnbradley"
	}
	return &Server{
		opts: opts,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // game clients send no Origin
		},
	}
}

func (s *Server) Sessions() int64 { return s.sessions.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out := make(chan []byte, outQueue)
		caller, sid, ok := s.handshake(conn, out)
		if !ok {
			return
		}
		s.sessions.Add(1)
		defer s.sessions.Add(-1)
		if !caller.IsServer {
			defer s.opts.Players.Disconnect(caller.ID, sid)
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeCmd {
				s.send(ctx, out, protocol.NewError(protocol.ErrProtoBadRequest, "expected CMD"))
				continue
			}
			if err := s.opts.Schemas.ValidateRaw(protocol.SchemaCmd, msg); err != nil {
				s.send(ctx, out, protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				s.send(ctx, out, protocol.NewError(protocol.ErrProtoBadRequest, "bad CMD"))
				continue
			}
			res := s.opts.Table.Dispatch(caller, cmd.Command, cmd.Args)
			s.send(ctx, out, ResultMessage(cmd.ID, res))
		}
	}
}

func ResultMessage(id string, res commands.Result) protocol.ResultMsg {
	msg := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              id,
		Command:         res.Command,
		Result:          res.Result,
		Reason:          res.Reason,
		Code:            res.Code,
		Charged:         res.Charged,
		Refunded:        res.Refunded,
	}
	if res.Err != nil {
		msg.Message = res.Err.Error()
	}
	return msg
}

// handshake returns the caller and, for players, the directory session id.
func (s *Server) handshake(conn *websocket.Conn, out chan []byte) (respawn.Player, uint64, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return respawn.Player{}, 0, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return respawn.Player{}, 0, false
	}
	if base.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return respawn.Player{}, 0, false
	}
	if err := s.opts.Schemas.ValidateRaw(protocol.SchemaHello, msg); err != nil {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
		return respawn.Player{}, 0, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return respawn.Player{}, 0, false
	}

	var (
		caller respawn.Player
		sid    uint64
	)
	if hello.Console {
		if !s.consoleAllowed(hello.Token) {
			_ = writeJSON(conn, protocol.NewError(protocol.ErrUnauthorized, "bad console token"))
			return respawn.Player{}, 0, false
		}
		caller = players.Console()
	} else {
		if !players.ValidID(hello.PlayerID) {
			_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "bad player_id"))
			return respawn.Player{}, 0, false
		}
		if !validPlayerToken(s.opts.PlayerSecret, hello.PlayerID, hello.Token) {
			_ = writeJSON(conn, protocol.NewError(protocol.ErrUnauthorized, "bad player token"))
			return respawn.Player{}, 0, false
		}
		p := players.Player{ID: hello.PlayerID, Name: strings.TrimSpace(hello.Name), Lang: hello.Lang}
		sid = s.opts.Players.Connect(p, func(text string) {
			b, err := json.Marshal(protocol.NewReply(text))
			if err != nil {
				return
			}
			select {
			case out <- b:
			default:
				s.log.Printf("ws: reply queue full for %s, dropped", p.ID)
			}
		})
		caller = respawn.Player{ID: p.ID, Name: p.Name}
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        caller.ID,
		Server:          s.opts.ServerName,
		Commands:        s.opts.Table.Names(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		if !caller.IsServer {
			s.opts.Players.Disconnect(caller.ID, sid)
		}
		return respawn.Player{}, 0, false
	}
	return caller, sid, true
}

func (s *Server) consoleAllowed(token string) bool {
	want := s.opts.ConsoleToken
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1
}

func (s *Server) send(ctx context.Context, out chan<- []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
