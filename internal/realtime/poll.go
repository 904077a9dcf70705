package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/livetrigger/internal/proto"
)

// DefaultPollWait is how long the backend may hold a poll request open.
const DefaultPollWait = 25 * time.Second

// pollGrace is added to the wait to bound a poll request whose peer went
// silent.
const pollGrace = 10 * time.Second

// PollTransport is the fallback tier: HTTP long-polling against a single
// endpoint. GET delivers batches of inbound messages after a cursor, POST
// carries client frames. Without a Client, requests time out after Wait plus
// a grace period.
type PollTransport struct {
	URL    string
	Token  TokenSource
	Wait   time.Duration
	Client *http.Client
}

// NewPollTransport returns a long-poll transport against url.
func NewPollTransport(url string, token TokenSource) *PollTransport {
	return &PollTransport{URL: url, Token: token, Wait: DefaultPollWait}
}

// Name implements Transport.
func (t *PollTransport) Name() string { return "long-poll" }

// Dial implements Transport. No request is issued until the first Read.
func (t *PollTransport) Dial(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base, err := url.Parse(t.URL)
	if err != nil {
		return nil, fmt.Errorf("parse poll url: %w", err)
	}
	wait := t.Wait
	if wait <= 0 {
		wait = DefaultPollWait
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: wait + pollGrace}
	}
	return &pollConn{
		t:       t,
		base:    base,
		client:  client,
		wait:    wait,
		session: uuid.NewString(),
	}, nil
}

type pollConn struct {
	t       *PollTransport
	base    *url.URL
	client  *http.Client
	wait    time.Duration
	session string
	cursor  int64
	pending []proto.Inbound
}

func (p *pollConn) endpoint(withCursor bool) string {
	u := *p.base
	q := u.Query()
	q.Set("session", p.session)
	if withCursor {
		q.Set("cursor", strconv.FormatInt(p.cursor, 10))
		q.Set("wait", p.wait.String())
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *pollConn) authorize(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.t.Token != nil {
		if tok := p.t.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
}

func (p *pollConn) Read(ctx context.Context) (proto.Inbound, error) {
	for len(p.pending) == 0 {
		if err := p.poll(ctx); err != nil {
			return proto.Inbound{}, err
		}
	}
	in := p.pending[0]
	p.pending = p.pending[1:]
	if in.Type == "" {
		return proto.Inbound{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return in, nil
}

func (p *pollConn) poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(true), nil)
	if err != nil {
		return err
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("poll: unexpected status %d", resp.StatusCode)
	}

	var body proto.PollResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("poll: decode response: %w", err)
	}
	if body.Cursor > p.cursor {
		p.cursor = body.Cursor
	}
	p.pending = append(p.pending, body.Messages...)
	return nil
}

func (p *pollConn) Write(ctx context.Context, out proto.Outbound) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(false), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("poll: post %s: unexpected status %d", out.Type, resp.StatusCode)
	}
	return nil
}

func (p *pollConn) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
