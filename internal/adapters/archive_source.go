package adapters

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"pinfetch/internal/ports"
	"pinfetch/internal/shared"
)

const defaultUserAgent = "pinfetch"

// ArchiveSourceAdapter streams archives over HTTP(S) or from file URLs.
// Timeouts come from the caller's context.
type ArchiveSourceAdapter struct {
	Client    *http.Client
	UserAgent string
}

func NewArchiveSourceAdapter() ArchiveSourceAdapter {
	return ArchiveSourceAdapter{
		Client:    &http.Client{},
		UserAgent: defaultUserAgent,
	}
}

func (a ArchiveSourceAdapter) Open(ctx context.Context, sourceURL string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.FetchError("fetch cancelled", err)
	}
	parsed, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return nil, shared.FetchError("invalid source url", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "file":
		file, err := os.Open(parsed.Path)
		if err != nil {
			return nil, shared.FetchError("failed to open local archive", err)
		}
		return file, nil
	case "http", "https":
		return a.openHTTP(ctx, parsed.String())
	default:
		return nil, shared.FetchError("unsupported source scheme: "+parsed.Scheme, nil)
	}
}

func (a ArchiveSourceAdapter) openHTTP(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, shared.FetchError("failed to create request", err)
	}
	agent := a.UserAgent
	if agent == "" {
		agent = defaultUserAgent
	}
	req.Header.Set("User-Agent", agent)
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, shared.FetchError("archive request failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, shared.FetchError("archive request failed",
			shared.HTTPStatusError(resp.StatusCode, shared.RedactURL(target)))
	}
	return resp.Body, nil
}

var _ ports.ArchiveSourcePort = ArchiveSourceAdapter{}
