// Package automation calls the remote build automation endpoint that turns a
// game script into hosted WebGL and APK artifacts.
package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/forgelabs/gameforge/internal/httputil"
)

// BuildResult holds the artifact URLs returned by the automation endpoint.
type BuildResult struct {
	WebGLURL string
	APKURL   string
}

// BuildError is returned when the endpoint answered with a non-200 status.
// Details carries the raw response body for the API error payload.
type BuildError struct {
	StatusCode int
	Details    string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("automation build failed with status %d: %s", e.StatusCode, e.Details)
}

// ErrNoArtifacts is returned when a 200 response contained no recognisable
// artifact URLs.
var ErrNoArtifacts = errors.New("automation response contained no artifact URLs")

// Builder submits game scripts for building.
type Builder interface {
	Build(ctx context.Context, script string) (BuildResult, error)
}

// Client implements Builder over HTTP.
type Client struct {
	http *httputil.Client
	path string
}

// NewClient creates a client for the given automation endpoint URL. The URL
// may point at the /build route directly or at the service root.
func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("UNREAL_AUTOMATION_URL is required")
	}

	base := strings.TrimSuffix(endpoint, "/")
	path := ""
	if !strings.HasSuffix(base, "/build") {
		path = "/build"
	}

	return &Client{
		http: httputil.NewClient(httputil.ClientConfig{BaseURL: base, Timeout: timeout}),
		path: path,
	}, nil
}

// Build submits the script and extracts artifact URLs from the response.
// Different automation deployments name the URL fields differently, so the
// body is probed for the known variants rather than bound to one schema.
func (c *Client) Build(ctx context.Context, script string) (BuildResult, error) {
	resp, err := c.http.Post(ctx, c.path, map[string]string{"script": script})
	if err != nil {
		return BuildResult{}, fmt.Errorf("call automation endpoint: %w", err)
	}

	body, err := httputil.ReadBody(resp, 1<<20)
	if err != nil {
		return BuildResult{}, err
	}

	if resp.StatusCode != 200 {
		return BuildResult{}, &BuildError{
			StatusCode: resp.StatusCode,
			Details:    strings.TrimSpace(string(body)),
		}
	}

	result := BuildResult{
		WebGLURL: firstString(body, "webgl_url", "webgl_preview_url", "preview_url"),
		APKURL:   firstString(body, "apk_url", "apk_download_url"),
	}
	if result.WebGLURL == "" && result.APKURL == "" {
		return BuildResult{}, ErrNoArtifacts
	}
	return result, nil
}

func firstString(body []byte, paths ...string) string {
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}
