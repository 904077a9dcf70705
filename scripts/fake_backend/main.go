package main

import (
	"context"
	"errors"
	"flag"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vovakirdan/livetrigger/internal/auth"
	"github.com/vovakirdan/livetrigger/internal/fakebackend"
	applog "github.com/vovakirdan/livetrigger/internal/log"
	"github.com/vovakirdan/livetrigger/internal/proto"
)

var (
	viewers  = []string{"ana", "bo", "kai", "mika", "sol"}
	gifts    = []string{"Rose", "Galaxy", "Lion", "Finger Heart"}
	comments = []string{"hi!", "love this", "again!", "lol"}
)

// Serves the fake backend and, with -demo, emits a stream of random
// interactions while a streamer is connected.
func main() {
	addr := flag.String("addr", ":3001", "listen address")
	demo := flag.Duration("demo", 2*time.Second, "interval between generated events (0 disables)")
	noWS := flag.Bool("no-ws", false, "refuse websocket upgrades to exercise the long-poll fallback")
	user := flag.String("user", "", "operator name; enables bearer authentication")
	password := flag.String("password", "", "operator password")
	secret := flag.String("jwt-secret", "dev-secret-change-me", "token signing secret")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := applog.New(*level, "console")

	opts := fakebackend.Options{}
	if *user != "" {
		hash, err := auth.HashPassword(*password)
		if err != nil {
			logger.Fatal().Err(err).Msg("hash password")
		}
		opts.Users = map[string]string{*user: hash}
		opts.JWT = &auth.JWTConfig{
			Secret:   []byte(*secret),
			Issuer:   "livetrigger-fake",
			Audience: "livetrigger",
			TTL:      24 * time.Hour,
		}
	}

	fb := fakebackend.New(opts, logger)
	fb.SetWebSocketEnabled(!*noWS)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *demo > 0 {
		go runDemo(ctx, fb, *demo)
	}

	srv := &http.Server{Addr: *addr, Handler: fb.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", *addr).Bool("websocket", !*noWS).Msg("fake backend listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func runDemo(ctx context.Context, fb *fakebackend.Server, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if live, _ := fb.State().Live(); !live {
			continue
		}

		ev := proto.StreamEventData{User: viewers[rand.IntN(len(viewers))]}
		switch rand.IntN(4) {
		case 0:
			ev.Type = "like"
			c := uint64(1 + rand.IntN(15))
			ev.Count = &c
		case 1:
			ev.Type = "chat"
			ev.Comment = comments[rand.IntN(len(comments))]
		case 2:
			ev.Type = "gift"
			ev.GiftName = gifts[rand.IntN(len(gifts))]
			c := uint64(1 + rand.IntN(3))
			ev.Count = &c
		default:
			ev.Type = "follow"
		}
		fb.EmitStreamEvent(ev)

		if n%5 == 0 {
			fb.EmitCounts()
		}
		if n%20 == 0 {
			fb.EmitRoomInfo(map[string]any{"viewers": 50 + rand.IntN(500)})
		}
	}
}
