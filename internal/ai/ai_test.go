package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubWriter struct {
	enabled bool
	text    string
	err     error
	calls   int
}

func (s *stubWriter) Enabled() bool { return s.enabled }

func (s *stubWriter) Procedure(context.Context, string) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestWithFallback(t *testing.T) {
	testCases := []struct {
		name        string
		primary     *stubWriter
		fallback    *stubWriter
		expect      string
		expectCalls int
	}{
		{"primary ok", &stubWriter{enabled: true, text: "file FIR"}, &stubWriter{enabled: true, text: "static"}, "file FIR", 0},
		{"primary error", &stubWriter{enabled: true, err: errors.New("boom")}, &stubWriter{enabled: true, text: "static"}, "static", 1},
		{"primary blank", &stubWriter{enabled: true, text: "  "}, &stubWriter{enabled: true, text: "static"}, "static", 1},
		{"primary disabled", &stubWriter{}, &stubWriter{enabled: true, text: "static"}, "static", 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chain := WithFallback(tc.primary, tc.fallback)
			got, err := chain.Procedure(context.Background(), "Section 66C")
			if err != nil {
				t.Fatalf("procedure: %v", err)
			}
			if got != tc.expect {
				t.Fatalf("expected %q got %q", tc.expect, got)
			}
			if tc.fallback.calls != tc.expectCalls {
				t.Fatalf("expected %d fallback calls got %d", tc.expectCalls, tc.fallback.calls)
			}
		})
	}
}

func TestWithFallbackAllDisabled(t *testing.T) {
	chain := WithFallback(&stubWriter{}, &stubWriter{})
	if chain.Enabled() {
		t.Fatalf("chain should be disabled")
	}
	if _, err := chain.Procedure(context.Background(), "Section 43"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled got %v", err)
	}
}

func TestStatic(t *testing.T) {
	got, _ := Static("").Procedure(context.Background(), "Section 43")
	if got != NoProcedure {
		t.Fatalf("expected default text got %q", got)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled got %v", err)
	}
	if _, err := NewGemini(GeminiConfig{APIKey: " "}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled got %v", err)
	}
}

func TestClientProcedure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var payload struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len(payload.Messages) != 2 || !strings.Contains(payload.Messages[1]["content"], "Section 66C under Indian Cyber Law") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  File a complaint with the cyber cell.  "}}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	got, err := client.Procedure(context.Background(), "Section 66C")
	if err != nil {
		t.Fatalf("procedure: %v", err)
	}
	if got != "File a complaint with the cyber cell." {
		t.Fatalf("unexpected procedure %q", got)
	}
}

func TestClientProcedureStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Procedure(context.Background(), "Section 43"); err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error got %v", err)
	}
}
