package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadGatewayDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg, err := LoadGateway()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8000", cfg.Addr())
	require.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	require.Equal(t, "/app/jobs", cfg.JobsDir)
}

func TestLoadGatewayOverrides(t *testing.T) {
	t.Setenv("PORT", "10000")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("UNREAL_AUTOMATION_URL", "http://automation:8080/build")

	cfg, err := LoadGateway()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:10000", cfg.Addr())
	require.Equal(t, "http://automation:8080/build", cfg.AutomationURL)
}

func TestWorkerEngineVersionList(t *testing.T) {
	t.Setenv("GODOT_VERSIONS", " 4.3-stable, 4.2.2-stable ,,4.1.3-stable ")

	cfg, err := LoadWorker()
	require.NoError(t, err)
	require.Equal(t,
		[]string{"4.3-stable", "4.2.2-stable", "4.1.3-stable"},
		cfg.Engine.VersionList())
}

func TestEngineManifestOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	data := "versions:\n  - 9.9-stable\nbase_url: https://mirror.example.com/godot\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	m, err := LoadEngineManifest(path)
	require.NoError(t, err)

	eng := Engine{Versions: "4.3-stable", BaseURL: "https://github.com/godotengine/godot/releases/download"}
	eng.ApplyManifest(m)
	require.Equal(t, []string{"9.9-stable"}, eng.VersionList())
	require.Equal(t, "https://mirror.example.com/godot", eng.BaseURL)
}

func TestEngineManifestEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: x\n"), 0o644))

	_, err := LoadEngineManifest(path)
	require.Error(t, err)
}
