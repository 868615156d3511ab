//nolint:testpackage // using internal package access to force the platform
package tooling

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vidrelay/internal/config"
	"vidrelay/internal/errs"

	"github.com/ulikunitz/xz"
)

func makeTarXZ(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	xzWriter, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}

	tarWriter := tar.NewWriter(xzWriter)

	for name, content := range files {
		err := tarWriter.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o755,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		})
		if err != nil {
			t.Fatalf("tar header: %v", err)
		}

		if _, err := tarWriter.Write([]byte(content)); err != nil {
			t.Fatalf("tar write: %v", err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}

	if err := xzWriter.Close(); err != nil {
		t.Fatalf("close xz: %v", err)
	}

	return buf.Bytes()
}

func newTestInstaller(t *testing.T, server *httptest.Server) *Installer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Tool.BinsDir = t.TempDir()
	cfg.Tool.DownloadTimeout = 10 * time.Second
	cfg.Tool.YTdlpLinuxAMD64 = server.URL + "/yt-dlp_linux"
	cfg.Tool.FFmpegLinuxAMD64 = server.URL + "/ffmpeg.tar.xz"

	inst := New(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	inst.platform = Platform{OS: "linux", Arch: "amd64"}

	return inst
}

func TestEnsureAllInstallsEverything(t *testing.T) {
	archive := makeTarXZ(t, map[string]string{
		"ffmpeg-build/bin/ffmpeg":  "fake ffmpeg",
		"ffmpeg-build/bin/ffprobe": "fake ffprobe",
		"ffmpeg-build/LICENSE":     "ignored",
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/yt-dlp_linux":
			_, _ = w.Write([]byte("fake tool"))
		case "/ffmpeg.tar.xz":
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	inst := newTestInstaller(t, server)

	if err := inst.EnsureAll(context.Background()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	for _, name := range []string{"yt-dlp", "ffmpeg", "ffprobe"} {
		path := filepath.Join(inst.cfg.Tool.BinsDir, name)

		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("%s not installed: %v", name, err)

			continue
		}

		if info.Mode().Perm()&0o111 == 0 {
			t.Errorf("%s is not executable: %v", name, info.Mode())
		}
	}

	// The extra archive member must not leak out.
	if _, err := os.Stat(filepath.Join(inst.cfg.Tool.BinsDir, "LICENSE")); err == nil {
		t.Error("non-target archive member was extracted")
	}
}

func TestEnsureAllSkipsExisting(t *testing.T) {
	var hits int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		http.Error(w, "unexpected download", http.StatusInternalServerError)
	}))
	defer server.Close()

	inst := newTestInstaller(t, server)

	for _, name := range []string{"yt-dlp", "ffmpeg", "ffprobe"} {
		path := filepath.Join(inst.cfg.Tool.BinsDir, name)
		if err := os.WriteFile(path, []byte("present"), 0o755); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	if err := inst.EnsureAll(context.Background()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	if hits != 0 {
		t.Errorf("server was hit %d times for already installed binaries", hits)
	}
}

func TestEnsureAllUnsupportedPlatform(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	inst := newTestInstaller(t, server)
	inst.platform = Platform{OS: "plan9", Arch: "386"}

	err := inst.EnsureAll(context.Background())
	if !errors.Is(err, errs.ErrUnsupportedPlatform) {
		t.Fatalf("err = %v, want ErrUnsupportedPlatform", err)
	}
}

func TestExtractTarXZMissingTargets(t *testing.T) {
	archive := makeTarXZ(t, map[string]string{"other/file": "data"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	inst := newTestInstaller(t, server)

	err := inst.installArchive(context.Background(), server.URL+"/ffmpeg.tar.xz", map[string]struct{}{
		"ffmpeg": {},
	})
	if err == nil {
		t.Fatal("expected error for archive without target files")
	}
}
