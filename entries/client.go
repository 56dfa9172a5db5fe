package entries

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"rekam/log"
)

const (
	listPath   = "/api/data"
	submitPath = "/api/data/submit"

	DefaultTimeout = 30 * time.Second
)

// NewEntry is what CreateEntry uploads.
type NewEntry struct {
	Name      string
	Address   string
	Audio     []byte
	MediaType string
}

// Store is the remote entry store.
type Store interface {
	ListEntries(ctx context.Context) ([]Entry, error)
	CreateEntry(ctx context.Context, e NewEntry) error
}

type Client struct {
	base *url.URL
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc := resty.New().
		SetBaseURL(base.String()).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		})

	// relative audio paths resolve against the directory of the base
	resolveBase := *base
	if !strings.HasSuffix(resolveBase.Path, "/") {
		resolveBase.Path += "/"
	}
	return &Client{base: &resolveBase, http: rc}, nil
}

func (c *Client) BaseURL() string { return c.http.BaseURL }

func (c *Client) ListEntries(ctx context.Context) ([]Entry, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		EnableTrace().
		Get(listPath)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	logRequest("list", resp)
	if !resp.IsSuccess() {
		return nil, &StatusError{Op: "list entries", Status: resp.StatusCode(), Body: resp.String()}
	}
	return decodeList(resp.Body(), c.base)
}

func (c *Client) CreateEntry(ctx context.Context, e NewEntry) error {
	mediaType := e.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	resp, err := c.http.R().
		SetContext(ctx).
		EnableTrace().
		SetMultipartFormData(map[string]string{
			"name":    e.Name,
			"address": e.Address,
		}).
		SetMultipartField("audio", AudioFilename(mediaType), mediaType, bytes.NewReader(e.Audio)).
		Post(submitPath)
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	logRequest("submit", resp)
	if !resp.IsSuccess() {
		return &StatusError{Op: "create entry", Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// Ping checks that the list endpoint answers.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := c.ListEntries(ctx)
	return time.Since(start), err
}

// AudioFilename names the uploaded clip after its media type:
// audio/webm becomes recording.webm.
func AudioFilename(mediaType string) string {
	base, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		base = mediaType
	}
	ext := "bin"
	if _, sub, ok := strings.Cut(base, "/"); ok && sub != "" && sub != "octet-stream" {
		ext = strings.TrimPrefix(sub, "x-")
	}
	if ext == "mpeg" {
		ext = "mp3"
	}
	return "recording." + ext
}

func logRequest(op string, resp *resty.Response) {
	ti := resp.Request.TraceInfo()
	log.Request(log.RequestMetrics{
		Op:         op,
		Status:     resp.StatusCode(),
		DNSMs:      ms(ti.DNSLookup),
		ConnMs:     ms(ti.TCPConnTime),
		TLSMs:      ms(ti.TLSHandshake),
		ServerMs:   ms(ti.ServerTime),
		TotalMs:    ms(ti.TotalTime),
		ConnReused: ti.IsConnReused,
		SizeKB:     float64(resp.Size()) / 1024,
	})
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
