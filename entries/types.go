// Package entries talks to the remote store and caches its entry list.
package entries

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Entry is one submission as the remote store returns it.
type Entry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	AudioURL string `json:"audioUrl"`
}

// StatusError is a non-2xx response from the remote store.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: remote store returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: remote store returned %d: %s", e.Op, e.Status, body)
}

// FetchError reports a failed list refresh.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetch entries: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// wireEntry accepts the field spellings seen across store implementations.
type wireEntry struct {
	ID         json.RawMessage `json:"id"`
	MongoID    json.RawMessage `json:"_id"`
	Name       string          `json:"name"`
	Address    string          `json:"address"`
	URL        string          `json:"url"`
	Audio      string          `json:"audio"`
	AudioURL   string          `json:"audioUrl"`
	AudioSnake string          `json:"audio_url"`
}

func (w wireEntry) entry(base *url.URL) Entry {
	id := rawID(w.ID)
	if id == "" {
		id = rawID(w.MongoID)
	}
	audio := firstNonEmpty(w.URL, w.AudioURL, w.AudioSnake, w.Audio)
	return Entry{
		ID:       id,
		Name:     w.Name,
		Address:  w.Address,
		AudioURL: resolve(base, audio),
	}
}

type envelope struct {
	Success *bool       `json:"success"`
	Datas   []wireEntry `json:"datas"`
	Data    []wireEntry `json:"data"`
	Message string      `json:"message"`
}

// decodeList normalizes a list response: either a bare array or an
// envelope carrying the array under "datas" or "data".
func decodeList(body []byte, base *url.URL) ([]Entry, error) {
	trimmed := strings.TrimSpace(string(body))
	var raw []wireEntry
	switch {
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decoding entry list: %w", err)
		}
	case strings.HasPrefix(trimmed, "{"):
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("decoding entry list: %w", err)
		}
		if env.Success != nil && !*env.Success {
			return nil, fmt.Errorf("remote store reported failure: %s", env.Message)
		}
		raw = env.Datas
		if raw == nil {
			raw = env.Data
		}
	default:
		return nil, fmt.Errorf("unexpected entry list payload: %.40q", trimmed)
	}

	out := make([]Entry, 0, len(raw))
	for _, w := range raw {
		out = append(out, w.entry(base))
	}
	return out, nil
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// numeric ids and {"$oid": ...}
	var oid struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(raw, &oid); err == nil && oid.OID != "" {
		return oid.OID
	}
	return strings.TrimSpace(string(raw))
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return base.ResolveReference(u).String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
