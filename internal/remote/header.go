package remote

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunglas/httpsfv"
)

// Agent identifies this client to the remote store through the
// Session-Agent header, an RFC 8941 Dictionary:
//
//	Session-Agent: name="shopsync", version="1.0.0", session="a1b2"
type Agent struct {
	Name    string
	Version string
	Session string
}

// Header serializes the agent. Empty fields are omitted.
func (a Agent) Header() (string, error) {
	dict := httpsfv.NewDictionary()
	if a.Name != "" {
		dict.Add("name", httpsfv.NewItem(a.Name))
	}
	if a.Version != "" {
		dict.Add("version", httpsfv.NewItem(a.Version))
	}
	if a.Session != "" {
		dict.Add("session", httpsfv.NewItem(a.Session))
	}
	if len(dict.Names()) == 0 {
		return "", nil
	}
	return httpsfv.Marshal(dict)
}

// ParseAgentHeader reads a Session-Agent header back into an Agent.
func ParseAgentHeader(header string) (Agent, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Agent{}, fmt.Errorf("empty Session-Agent header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return Agent{}, fmt.Errorf("invalid Session-Agent header: %w", err)
	}

	return Agent{
		Name:    stringMember(dict, "name"),
		Version: stringMember(dict, "version"),
		Session: stringMember(dict, "session"),
	}, nil
}

// retryAfter extracts the server's retry hint from a 429 response.
//
// The RateLimit dictionary ("limit=100, remaining=0, reset=30") is preferred;
// a Retry-After in delta-seconds is the fallback. Zero means no hint.
func retryAfter(h http.Header) time.Duration {
	if raw := h.Get("RateLimit"); raw != "" {
		if dict, err := httpsfv.UnmarshalDictionary([]string{raw}); err == nil {
			if member, ok := dict.Get("reset"); ok {
				if item, ok := member.(httpsfv.Item); ok {
					if secs, ok := item.Value.(int64); ok && secs >= 0 {
						return time.Duration(secs) * time.Second
					}
				}
			}
		}
	}

	if raw := strings.TrimSpace(h.Get("Retry-After")); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func stringMember(dict *httpsfv.Dictionary, key string) string {
	member, ok := dict.Get(key)
	if !ok {
		return ""
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return ""
	}
	switch v := item.Value.(type) {
	case string:
		return v
	case httpsfv.Token:
		return string(v)
	}
	return ""
}
