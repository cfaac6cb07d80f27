// Package uploader delivers finished crash reports to their endpoint:
// an HTTP intake or, for local setups, a file:// directory. Upload is
// synchronous and one-shot; retry policy lives in the spool, not here.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
)

// APIKeyHeader carries the upload credential.
const APIKeyHeader = "X-Crashtrack-Api-Key"

// Config configures one uploader.
type Config struct {
	// Endpoint is http(s):// or file://. file endpoints write
	// <dir>/<uuid>.json atomically instead of POSTing.
	Endpoint string

	// APIKey is attached to HTTP uploads. Never logged.
	APIKey string

	// Timeout bounds one upload attempt end to end.
	Timeout time.Duration
}

// Client uploads reports per its config.
type Client struct {
	cfg  Config
	dest *url.URL
	http *http.Client
	log  *logging.Logger
}

// New validates the endpoint and builds a client.
func New(cfg Config, log *logging.Logger) (*Client, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidEndpoint,
			fmt.Sprintf("endpoint %q is not a valid URL", cfg.Endpoint)).WithCause(err)
	}
	switch u.Scheme {
	case "http", "https", "file":
	default:
		return nil, core.ErrValidation(core.CodeInvalidEndpoint,
			fmt.Sprintf("endpoint scheme %q is not supported", u.Scheme))
	}
	return &Client{
		cfg:  cfg,
		dest: u,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}, nil
}

// Upload sends one report, synchronously. A timeout is an upload
// failure like any other; the parsed report stays valid regardless.
// Incomplete reports are uploaded too — partial crash data is more
// valuable than none — annotated by their own incomplete field.
func (c *Client) Upload(ctx context.Context, report *crash.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return core.ErrInternal("encoding report").WithCause(err)
	}

	if c.dest.Scheme == "file" {
		return c.uploadToFile(report.UUID, payload)
	}
	return c.uploadHTTP(ctx, report, payload)
}

func (c *Client) uploadToFile(uuid string, payload []byte) error {
	dir := c.dest.Path
	if c.dest.Host != "" {
		// file://relative/dir parses the first segment as host.
		dir = filepath.Join(c.dest.Host, c.dest.Path)
	}
	path := filepath.Join(dir, uuid+".json")
	if err := renameio.WriteFile(path, payload, 0o600); err != nil {
		return core.ErrUpload(fmt.Sprintf("writing report to %s", path)).WithCause(err)
	}
	c.log.Info("report written", "path", path)
	return nil
}

func (c *Client) uploadHTTP(ctx context.Context, report *crash.Report, payload []byte) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return core.ErrUpload("building upload request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set(APIKeyHeader, c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return core.ErrUpload("posting report").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return core.ErrUpload(fmt.Sprintf("endpoint rejected report: %s", resp.Status)).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(body))
	}

	c.log.Info("report uploaded",
		"report_id", report.UUID, "status", resp.StatusCode, "incomplete", report.Incomplete)
	return nil
}
