package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"narcosim.ai/internal/protocol"
)

func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "bot", "player name")
		days = flag.Int("days", 30, "stop after this many END_TURNs")
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
		PlayerName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{maxDays: *days}
	seq := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
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
			logger.Printf("WELCOME game=%s seed=%d day=%d", w.GameID, w.Game.Seed, w.Game.Day)

		case protocol.TypeResult:
			var r protocol.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			for _, line := range r.Result.Log {
				logger.Printf("day %d: %s", r.Result.Day, line)
			}
			if !r.Result.OK {
				logger.Printf("%s rejected: %s %s", r.ID, r.ErrorCode, r.Result.Reason)
			}
			if r.Result.Outcome != "" {
				logger.Printf("game over: %s", r.Result.Outcome)
			}

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			cmd, ok := b.next(st.View)
			if !ok {
				logger.Printf("done at day %d net_worth=%.0f", st.Day, st.View.NetWorth)
				return
			}
			seq++
			out := protocol.CmdMsg{
				Type:            protocol.TypeCmd,
				ProtocolVersion: protocol.Version,
				ID:              fmt.Sprintf("C%d", seq),
				Command:         cmd,
			}
			if err := conn.WriteJSON(out); err != nil {
				logger.Printf("send CMD: %v", err)
				return
			}

		case protocol.TypeError:
			var em protocol.ErrorMsg
			_ = json.Unmarshal(msg, &em)
			logger.Printf("ERROR %s: %s", em.Code, em.Message)
		}
	}
}
