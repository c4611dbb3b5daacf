// Package engine provisions the headless game engine binary and runs web
// exports with it.
package engine

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNoVersionInstalled is returned when every candidate version failed to
// download or install.
var ErrNoVersionInstalled = errors.New("no engine version could be installed")

// minArchiveSize rejects error pages and truncated downloads masquerading as
// release archives.
const minArchiveSize = 20 << 20

// Provisioner downloads and installs one engine binary out of a fallback
// list of release versions.
type Provisioner struct {
	// BaseURL is the release download root, e.g.
	// https://github.com/godotengine/godot/releases/download
	BaseURL string
	// Versions are candidate release identifiers, tried in order.
	Versions []string
	// BinPath is where the installed binary lands.
	BinPath string

	// DownloadRetries is per-version download attempts.
	DownloadRetries int
	// MinArchiveSize overrides the default size sanity threshold.
	MinArchiveSize int64

	HTTPClient *http.Client

	// ProbeFunc overrides the version probe run on the installed binary.
	ProbeFunc func(path string) error
}

// archiveURL builds the release asset URL for a version.
func (p *Provisioner) archiveURL(version string) string {
	return fmt.Sprintf("%s/%s/Godot_v%s_linux.x86_64.zip",
		strings.TrimSuffix(p.BaseURL, "/"), version, version)
}

// Install tries each version in order until one downloads, passes the size
// check, unpacks and responds to a version probe. It returns the installed
// version.
func (p *Provisioner) Install(ctx context.Context) (string, error) {
	if len(p.Versions) == 0 {
		return "", fmt.Errorf("no engine versions configured")
	}

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	retries := p.DownloadRetries
	if retries <= 0 {
		retries = 3
	}
	minSize := p.MinArchiveSize
	if minSize <= 0 {
		minSize = minArchiveSize
	}

	for _, version := range p.Versions {
		url := p.archiveURL(version)

		archive, err := p.download(ctx, client, url, retries, minSize)
		if err != nil {
			log.Warn().Str("version", version).Err(err).Msg("engine download failed, trying next version")
			continue
		}

		if err := p.installArchive(archive); err != nil {
			log.Warn().Str("version", version).Err(err).Msg("engine install failed, trying next version")
			continue
		}

		log.Info().Str("version", version).Str("bin", p.BinPath).Msg("engine installed")
		return version, nil
	}

	return "", ErrNoVersionInstalled
}

func (p *Provisioner) download(ctx context.Context, client *http.Client, url string, retries int, minSize int64) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read archive: %w", err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("download returned status %d", resp.StatusCode)
			continue
		}
		if int64(len(data)) < minSize {
			lastErr = fmt.Errorf("archive too small (%d bytes), likely an error page", len(data))
			continue
		}
		return data, nil
	}
	return nil, fmt.Errorf("download %s: %w", url, lastErr)
}

// installArchive extracts the single engine executable from the release zip
// into BinPath and verifies it reports a version string.
func (p *Provisioner) installArchive(archive []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	var binFile *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// Release zips contain exactly one executable at top level.
		if binFile == nil || strings.Contains(f.Name, "Godot") {
			binFile = f
		}
	}
	if binFile == nil {
		return fmt.Errorf("archive contains no files")
	}

	src, err := binFile.Open()
	if err != nil {
		return fmt.Errorf("open archive entry: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(p.BinPath), 0o755); err != nil {
		return fmt.Errorf("create bin directory: %w", err)
	}

	tmp := p.BinPath + ".tmp"
	dst, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return fmt.Errorf("create binary: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("extract binary: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p.BinPath); err != nil {
		return fmt.Errorf("install binary: %w", err)
	}

	probe := p.ProbeFunc
	if probe == nil {
		probe = Probe
	}
	if err := probe(p.BinPath); err != nil {
		return fmt.Errorf("installed binary failed version probe: %w", err)
	}
	return nil
}

// Probe checks that the binary at path reports a version string.
func Probe(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return fmt.Errorf("run %s --version: %w", path, err)
	}
	if strings.TrimSpace(string(out)) == "" {
		return fmt.Errorf("%s --version produced no output", path)
	}
	return nil
}
