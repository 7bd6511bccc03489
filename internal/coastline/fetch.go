package coastline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Fetcher retrieves the raw GeoJSON document for a tier.
type Fetcher interface {
	Fetch(ctx context.Context, tier Tier) ([]byte, error)
}

// TierFileName returns the conventional file name for a tier's coastline
// document.
func TierFileName(tier Tier) string {
	return fmt.Sprintf("coastline_%s.geojson", tier)
}

// FileFetcher reads tier documents from a local directory and falls back
// to a remote base URL when the local file is missing or unreadable.
type FileFetcher struct {
	// Dir holds coastline_<tier>.geojson files. Empty disables the
	// local path.
	Dir string
	// RemoteBase is the fallback URL prefix; the tier file name is
	// appended. Empty disables the fallback.
	RemoteBase string
	// Client is used for remote fetches. Nil means a 30s-timeout client.
	Client *http.Client
	// UserAgent is sent on remote requests.
	UserAgent string
}

func (f *FileFetcher) httpClient() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// Fetch tries the local path first, then the remote fallback.
func (f *FileFetcher) Fetch(ctx context.Context, tier Tier) ([]byte, error) {
	var localErr error
	if f.Dir != "" {
		data, err := os.ReadFile(filepath.Join(f.Dir, TierFileName(tier)))
		if err == nil {
			return data, nil
		}
		localErr = err
	}

	if f.RemoteBase == "" {
		if localErr != nil {
			return nil, fmt.Errorf("reading local coastline file: %w", localErr)
		}
		return nil, fmt.Errorf("no coastline source configured for %s tier", tier)
	}

	url := f.RemoteBase + "/" + TierFileName(tier)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching coastline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coastline server returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading coastline response: %w", err)
	}
	return data, nil
}
