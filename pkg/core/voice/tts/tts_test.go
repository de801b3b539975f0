package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubSynth struct {
	name string
	wav  []byte
	err  error
	n    int
}

func (s *stubSynth) Name() string { return s.name }
func (s *stubSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.n++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.wav, s.err
}

func TestClientSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req speechRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Input != "hello caller" || req.ResponseFormat != "wav" {
			t.Errorf("request = %+v", req)
		}
		if req.Voice != "nova" {
			t.Errorf("voice = %q, want nova", req.Voice)
		}
		w.Write([]byte("RIFFaudio"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", WithVoice("nova"))
	wav, err := c.Synthesize(context.Background(), "hello caller")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(wav) != "RIFFaudio" {
		t.Fatalf("wav = %q", wav)
	}
}

func TestClientSynthesizeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", WithName("primary"))
	_, err := c.Synthesize(context.Background(), "hi")
	var ttsErr *Error
	if !errors.As(err, &ttsErr) {
		t.Fatalf("error type = %T", err)
	}
	if ttsErr.Provider != "primary" || ttsErr.Status != http.StatusBadGateway {
		t.Fatalf("error = %+v", ttsErr)
	}
}

func TestFallbackUsesSecondary(t *testing.T) {
	primary := &stubSynth{name: "p", err: errors.New("boom")}
	secondary := &stubSynth{name: "s", wav: []byte("ok")}
	f := NewFallback(primary, secondary, nil)
	fired := 0
	f.OnFallback = func() { fired++ }

	wav, err := f.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(wav) != "ok" {
		t.Fatalf("wav = %q", wav)
	}
	if primary.n != 1 || secondary.n != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", primary.n, secondary.n)
	}
	if fired != 1 {
		t.Fatalf("OnFallback fired %d times, want 1", fired)
	}
}

func TestFallbackSkipsSecondaryOnSuccess(t *testing.T) {
	primary := &stubSynth{name: "p", wav: []byte("ok")}
	secondary := &stubSynth{name: "s"}
	f := NewFallback(primary, secondary, nil)

	if _, err := f.Synthesize(context.Background(), "hi"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if secondary.n != 0 {
		t.Fatal("secondary called on primary success")
	}
}

func TestFallbackHonorsCancellation(t *testing.T) {
	primary := &stubSynth{name: "p", err: errors.New("boom")}
	secondary := &stubSynth{name: "s", wav: []byte("ok")}
	f := NewFallback(primary, secondary, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Synthesize(ctx, "hi"); err == nil {
		t.Fatal("canceled synth succeeded")
	}
	if secondary.n != 0 {
		t.Fatal("fallback attempted after cancellation")
	}
}
