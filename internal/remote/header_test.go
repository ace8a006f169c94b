package remote

import (
	"net/http"
	"testing"
	"time"
)

func TestAgentHeader_RoundTrip(t *testing.T) {
	agent := Agent{Name: "shopsync", Version: "1.4.0", Session: "a1b2"}

	header, err := agent.Header()
	if err != nil {
		t.Fatalf("Header() error = %v", err)
	}
	if header != `name="shopsync", version="1.4.0", session="a1b2"` {
		t.Errorf("Header() = %s", header)
	}

	got, err := ParseAgentHeader(header)
	if err != nil {
		t.Fatalf("ParseAgentHeader() error = %v", err)
	}
	if got != agent {
		t.Errorf("ParseAgentHeader() = %+v, want %+v", got, agent)
	}
}

func TestAgentHeader_Empty(t *testing.T) {
	header, err := Agent{}.Header()
	if err != nil || header != "" {
		t.Errorf("Header() = %q, %v; want empty", header, err)
	}
}

func TestParseAgentHeader_Errors(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"malformed", "name=\"unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAgentHeader(tt.header); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseAgentHeader_Token(t *testing.T) {
	got, err := ParseAgentHeader(`name=shopctl, version="0.9.0"`)
	if err != nil {
		t.Fatalf("ParseAgentHeader() error = %v", err)
	}
	if got.Name != "shopctl" {
		t.Errorf("Name = %q, want shopctl", got.Name)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		want   time.Duration
	}{
		{"reset wins", http.Header{"Ratelimit": {"remaining=0, reset=12"}, "Retry-After": {"99"}}, 12 * time.Second},
		{"retry-after only", http.Header{"Retry-After": {"7"}}, 7 * time.Second},
		{"http date ignored", http.Header{"Retry-After": {"Wed, 21 Oct 2026 07:28:00 GMT"}}, 0},
		{"negative ignored", http.Header{"Retry-After": {"-3"}}, 0},
		{"reset not integer", http.Header{"Ratelimit": {`reset="soon"`}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryAfter(tt.header); got != tt.want {
				t.Errorf("retryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}
