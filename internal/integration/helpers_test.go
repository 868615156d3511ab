//go:build integration
// +build integration

package integration_test

import (
	_ "embed"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"vidrelay/internal/config"
	httprouter "vidrelay/internal/infrastructure/delivery/http"
	"vidrelay/internal/orchestrator"
	"vidrelay/internal/runner"
	"vidrelay/internal/session"
	"vidrelay/internal/workspace"
)

//go:embed testdata/fake-ytdlp.sh
var fakeYTDLPScript []byte

//go:embed testdata/media_info.json
var mediaInfoJSON []byte

type fixture struct {
	server  *httptest.Server
	workDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake media tool helper uses a shell script")
	}

	baseDir := t.TempDir()

	script := filepath.Join(baseDir, "yt-dlp")
	if err := os.WriteFile(script, fakeYTDLPScript, 0o755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}

	meta := filepath.Join(baseDir, "media_info.json")
	if err := os.WriteFile(meta, mediaInfoJSON, 0o644); err != nil {
		t.Fatalf("write metadata fixture: %v", err)
	}

	t.Setenv("VR_IT_META", meta)

	workDir := filepath.Join(baseDir, "work")

	cfg := &config.Config{}
	cfg.HTTP.MetadataTimeout = 10 * time.Second
	cfg.HTTP.DownloadTimeout = 30 * time.Second
	cfg.Tool.Path = script
	cfg.Dir.SubLangs = "en.*"
	cfg.Dir.Workspace = workDir

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewRegistry(log, nil)
	ws := workspace.New(log, workDir)
	orc := orchestrator.New(log, cfg, runner.New(log, cfg), sessions, ws, nil)

	router := httprouter.New(log, cfg, orc, sessions, ws, nil)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &fixture{server: server, workDir: workDir}
}

// waitWorkspaceEmpty polls until no artifacts remain, since handler cleanup
// runs after the last response byte is handed to the client.
func (f *fixture) waitWorkspaceEmpty(t *testing.T) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)

	for {
		entries, err := os.ReadDir(f.workDir)
		if err != nil {
			t.Fatalf("read workspace: %v", err)
		}

		if len(entries) == 0 {
			return
		}

		if time.Now().After(deadline) {
			t.Fatalf("workspace still holds %d entries", len(entries))
		}

		time.Sleep(20 * time.Millisecond)
	}
}
