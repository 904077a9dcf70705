package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Connects to the local dashboard push feed and prints frames until the
// timeout or -count frames were received.
func main() {
	addr := flag.String("addr", "ws://127.0.0.1:8787/ws", "dashboard WebSocket address")
	count := flag.Int("count", 5, "frames to print before exiting (0 = until timeout)")
	timeout := flag.Duration("timeout", 30*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	for n := 0; *count == 0 || n < *count; n++ {
		var frame struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Fatalf("read: %v", err)
		}
		fmt.Printf("%s/%s %s\n", frame.Type, frame.Event, frame.Data)
	}
}
