package ytdl

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProber struct {
	calls     []string // strategy names in call order
	responses map[string][]byte
	err       error
}

func (f *fakeProber) Probe(_ context.Context, _ string, s Strategy) ([]byte, error) {
	f.calls = append(f.calls, s.Name)
	if raw, ok := f.responses[s.Name]; ok {
		return raw, nil
	}
	return nil, f.err
}

func testStrategies() []Strategy {
	return []Strategy{
		{Name: "android", PlayerClient: "android", Retries: 2},
		{Name: "ios", PlayerClient: "ios", Retries: 1},
	}
}

const probeDump = `{"title":"t","formats":[{"format_id":"22","ext":"mp4","vcodec":"avc1","acodec":"mp4a","height":720}]}`

func TestNegotiate_FallsThroughToSecondStrategy(t *testing.T) {
	p := &fakeProber{
		responses: map[string][]byte{"ios": []byte(probeDump)},
		err:       errors.New("ERROR: no video formats found"),
	}
	n := NewNegotiator(p, testStrategies(), time.Millisecond, 2*time.Millisecond)

	res, err := n.Negotiate(context.Background(), "https://example.com/v1")
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if res.Strategy != "ios" {
		t.Errorf("winning strategy = %q, expected ios", res.Strategy)
	}
	// android exhausts its own retry bound before ios is consulted.
	want := []string{"android", "android", "ios"}
	if len(p.calls) != len(want) {
		t.Fatalf("calls = %v, expected %v", p.calls, want)
	}
	for i := range want {
		if p.calls[i] != want[i] {
			t.Errorf("call[%d] = %q, expected %q", i, p.calls[i], want[i])
		}
	}
}

func TestNegotiate_AllExhausted(t *testing.T) {
	p := &fakeProber{err: errors.New("ERROR: This video is unavailable")}
	n := NewNegotiator(p, testStrategies(), time.Millisecond, 2*time.Millisecond)

	_, err := n.Negotiate(context.Background(), "https://example.com/v1")
	if !errors.Is(err, ErrNoFormats) {
		t.Errorf("err = %v, expected ErrNoFormats", err)
	}
}

func TestNegotiate_NetworkSubCause(t *testing.T) {
	p := &fakeProber{err: errors.New("probe: network is unreachable")}
	n := NewNegotiator(p, testStrategies(), time.Millisecond, 2*time.Millisecond)

	_, err := n.Negotiate(context.Background(), "https://example.com/v1")
	if !errors.Is(err, ErrNetworkUnreachable) {
		t.Errorf("err = %v, expected ErrNetworkUnreachable", err)
	}
}

func TestNegotiate_EmptyFormatListKeepsGoing(t *testing.T) {
	p := &fakeProber{
		responses: map[string][]byte{
			"android": []byte(`{"title":"t","formats":[{"format_id":"sb0","ext":"mhtml","vcodec":"none","acodec":"none"}]}`),
			"ios":     []byte(probeDump),
		},
	}
	n := NewNegotiator(p, testStrategies(), time.Millisecond, 2*time.Millisecond)

	res, err := n.Negotiate(context.Background(), "https://example.com/v1")
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if res.Strategy != "ios" {
		t.Errorf("strategy = %q; storyboard-only strategy should not win", res.Strategy)
	}
}

func TestNegotiate_ContextCancelStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakeProber{err: errors.New("boom")}
	n := NewNegotiator(p, testStrategies(), time.Hour, 2*time.Hour)

	_, err := n.Negotiate(ctx, "https://example.com/v1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, expected context.Canceled", err)
	}
}
