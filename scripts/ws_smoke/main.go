package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run connects two clients to one timetable, sends from the first and
// checks both receive the formatted broadcast.
func run() error {
	base := flag.String("addr", "ws://localhost:8080/api/v1/ws", "WebSocket base address")
	timetable := flag.String("timetable", "smoke", "timetable id")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	url := strings.TrimRight(*base, "/") + "/" + *timetable

	sender, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial sender: %w", err)
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")

	receiver, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial receiver: %w", err)
	}
	defer receiver.Close(websocket.StatusNormalClosure, "bye")

	// Registration completes after the handshake; give the server a moment.
	time.Sleep(100 * time.Millisecond)

	if err := sender.Write(ctx, websocket.MessageText, []byte(*text)); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	want := *timetable + ": " + *text
	for name, conn := range map[string]*websocket.Conn{"receiver": receiver, "sender": sender} {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("%s read: %w", name, err)
		}
		if string(data) != want {
			return fmt.Errorf("%s got %q, want %q", name, data, want)
		}
		fmt.Printf("%s ok: %s\n", name, data)
	}
	return nil
}
