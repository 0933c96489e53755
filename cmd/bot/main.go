package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"respawnbradley.gg/internal/protocol"
	"respawnbradley.gg/internal/transport/ws"
)

func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		player  = flag.String("player", "76561198000000001", "player id (17 digits)")
		name    = flag.String("name", "bot", "player name")
		lang    = flag.String("lang", "en", "player language")
		console = flag.Bool("console", false, "connect as the server console")
		token   = flag.String("token", "", "console token, or player token when -secret is empty")
		secret  = flag.String("secret", "", "server player secret; the bot derives its player token from it")
		command = flag.String("cmd", "respawnbradley", "command to send")
		args    = flag.String("args", "", "comma separated command args")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Lang:            *lang,
	}
	if *console {
		hello.Console = true
		hello.Token = *token
	} else {
		hello.PlayerID = *player
		hello.Name = *name
		hello.Token = *token
		if *secret != "" {
			hello.Token = ws.PlayerToken(*secret, *player)
		}
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("read: %v", err)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME player_id=%s server=%s commands=%v", w.PlayerID, w.Server, w.Commands)
			cmd := protocol.CmdMsg{
				Type:            protocol.TypeCmd,
				ProtocolVersion: protocol.Version,
				ID:              fmt.Sprintf("C_%d", time.Now().UnixNano()),
				Command:         *command,
				Args:            splitArgs(*args),
			}
			if err := conn.WriteJSON(cmd); err != nil {
				logger.Fatalf("send CMD: %v", err)
			}

		case protocol.TypeReply:
			var r protocol.ReplyMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			logger.Printf("REPLY %s", r.Text)

		case protocol.TypeResult:
			var r protocol.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			logger.Printf("RESULT %s result=%s code=%s charged=%v refunded=%v", r.Command, r.Result, r.Code, r.Charged, r.Refunded)
			return

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR %s: %s", e.Code, e.Message)
			return
		}
	}
}

func splitArgs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
