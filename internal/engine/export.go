package engine

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// webPreset is the export preset name expected in the cloned project.
const webPreset = "Web"

// Exporter runs a headless web export of an engine project.
type Exporter interface {
	Export(ctx context.Context, projectDir, outDir string) error
}

// Headless exports via the installed engine binary.
type Headless struct {
	Bin string
}

// Export runs `<bin> --headless --path <projectDir> --export-release Web
// <outDir>/index.html`. The engine writes index.html plus the wasm/js
// payload next to it.
func (h Headless) Export(ctx context.Context, projectDir, outDir string) error {
	target := filepath.Join(outDir, "index.html")

	cmd := exec.CommandContext(ctx, h.Bin,
		"--headless",
		"--path", projectDir,
		"--export-release", webPreset, target,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("engine export failed: %w: %s", err, truncate(string(out), 2048))
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
