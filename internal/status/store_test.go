package status

import "testing"

func TestSetStatusConnectedWithIdentity(t *testing.T) {
	s := NewStore()
	s.SetStatus(true, "streamer")

	st := s.State()
	if !st.Connected || st.PeerIdentity == nil || *st.PeerIdentity != "streamer" {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestSetStatusIdentityIgnoredWhenDisconnected(t *testing.T) {
	s := NewStore()
	s.SetStatus(true, "streamer")
	s.SetStatus(false, "someone-else")

	st := s.State()
	if st.Connected {
		t.Fatalf("expected disconnected")
	}
	if st.PeerIdentity == nil || *st.PeerIdentity != "streamer" {
		t.Fatalf("identity should be untouched, got %+v", st.PeerIdentity)
	}
}

func TestSetStatusDisconnectClearsIdentity(t *testing.T) {
	s := NewStore()
	s.SetStatus(true, "streamer")
	s.SetStatus(false, "")

	if st := s.State(); st.PeerIdentity != nil {
		t.Fatalf("expected identity cleared, got %q", *st.PeerIdentity)
	}
}

func TestConnectedWithoutIdentityKeepsPrevious(t *testing.T) {
	s := NewStore()
	s.SetStatus(true, "streamer")
	s.SetStatus(true, "")

	if st := s.State(); st.PeerIdentity == nil || *st.PeerIdentity != "streamer" {
		t.Fatalf("expected previous identity kept, got %+v", st)
	}
}

func TestErrorAndReset(t *testing.T) {
	s := NewStore()
	ch, unsub := s.Subscribe(4)
	defer unsub()

	s.SetStatus(true, "streamer")
	s.SetError("dial tcp: connection refused")

	st := s.State()
	if st.LastError == nil || *st.LastError != "dial tcp: connection refused" {
		t.Fatalf("unexpected error: %+v", st.LastError)
	}

	s.Reset()
	st = s.State()
	if st.Connected || st.PeerIdentity != nil || st.LastError != nil {
		t.Fatalf("expected zero state, got %+v", st)
	}

	if got := len(ch); got != 3 {
		t.Fatalf("expected 3 published changes, got %d", got)
	}
}

func TestStateIsACopy(t *testing.T) {
	s := NewStore()
	s.SetStatus(true, "streamer")

	st := s.State()
	*st.PeerIdentity = "mutated"

	if got := *s.State().PeerIdentity; got != "streamer" {
		t.Fatalf("store mutated through snapshot: %q", got)
	}
}
