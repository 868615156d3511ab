// Package tooling installs the external binaries the service shells out to:
// the media tool itself and the ffmpeg/ffprobe pair it needs for merge and
// transcode steps. Binaries land in the configured bins directory; the
// runner's lookup order picks them up from there.
package tooling

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"vidrelay/internal/config"
	"vidrelay/internal/errs"

	"github.com/ulikunitz/xz"
)

const (
	filePermExecutable = 0o755

	binToolName    = "yt-dlp"
	binFFmpegName  = "ffmpeg"
	binFFprobeName = "ffprobe"
)

// Platform is the OS and architecture pair binaries are selected for.
type Platform struct {
	OS   string
	Arch string
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Installer downloads and installs external binaries into the bins
// directory.
type Installer struct {
	log      *slog.Logger
	cfg      *config.Config
	platform Platform
	client   *http.Client
}

// New creates an Installer for the current platform.
func New(log *slog.Logger, cfg *config.Config) *Installer {
	return &Installer{
		log:      log.With(slog.String("package", "tooling")),
		cfg:      cfg,
		platform: Platform{OS: runtime.GOOS, Arch: runtime.GOARCH},
		client:   &http.Client{Timeout: cfg.Tool.DownloadTimeout},
	}
}

// EnsureAll installs every required binary that is not already present in
// the bins directory. Existing non-empty binaries are left untouched.
func (i *Installer) EnsureAll(ctx context.Context) error {
	if err := os.MkdirAll(i.cfg.Tool.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	// ffmpeg and ffprobe come out of one archive.
	if !i.exists(binFFmpegName) || !i.exists(binFFprobeName) {
		url, err := i.ffmpegURL()
		if err != nil {
			return err
		}

		err = i.installArchive(ctx, url, map[string]struct{}{
			binFFmpegName:  {},
			binFFprobeName: {},
		})
		if err != nil {
			return fmt.Errorf("install ffmpeg: %w", err)
		}
	}

	if !i.exists(binToolName) {
		url, err := i.toolURL()
		if err != nil {
			return err
		}

		if err := i.installBinary(ctx, url, binToolName); err != nil {
			return fmt.Errorf("install %s: %w", binToolName, err)
		}
	}

	i.log.InfoContext(ctx, "external binaries ready",
		slog.String("dir", i.cfg.Tool.BinsDir))

	return nil
}

func (i *Installer) exists(name string) bool {
	info, err := os.Stat(filepath.Join(i.cfg.Tool.BinsDir, name))

	return err == nil && info.Size() > 0
}

func (i *Installer) toolURL() (string, error) {
	switch {
	case i.platform.OS == "linux" && i.platform.Arch == "amd64":
		return i.cfg.Tool.YTdlpLinuxAMD64, nil
	case i.platform.OS == "linux" && i.platform.Arch == "arm64":
		return i.cfg.Tool.YTdlpLinuxARM64, nil
	}

	return "", fmt.Errorf("%w: %s", errs.ErrUnsupportedPlatform, i.platform)
}

func (i *Installer) ffmpegURL() (string, error) {
	switch {
	case i.platform.OS == "linux" && i.platform.Arch == "amd64":
		return i.cfg.Tool.FFmpegLinuxAMD64, nil
	case i.platform.OS == "linux" && i.platform.Arch == "arm64":
		return i.cfg.Tool.FFmpegLinuxARM64, nil
	}

	return "", fmt.Errorf("%w: %s", errs.ErrUnsupportedPlatform, i.platform)
}

// installBinary fetches a bare executable and moves it into place.
func (i *Installer) installBinary(ctx context.Context, url, name string) error {
	i.log.InfoContext(ctx, "downloading binary",
		slog.String("binary", name), slog.String("url", url))

	tmpPath, cleanup, err := i.fetchToTemp(ctx, url)
	if err != nil {
		return err
	}
	defer cleanup()

	dest := filepath.Join(i.cfg.Tool.BinsDir, name)

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	if err := os.Chmod(dest, filePermExecutable); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	return nil
}

// installArchive fetches a tar.xz archive and extracts the target files
// into the bins directory.
func (i *Installer) installArchive(ctx context.Context, url string, targets map[string]struct{}) error {
	if !strings.HasSuffix(url, ".tar.xz") {
		return fmt.Errorf("unsupported archive format: %s", url)
	}

	i.log.InfoContext(ctx, "downloading archive", slog.String("url", url))

	tmpPath, cleanup, err := i.fetchToTemp(ctx, url)
	if err != nil {
		return err
	}
	defer cleanup()

	return i.extractTarXZ(tmpPath, targets)
}

// fetchToTemp downloads a URL into a temp file inside the bins directory so
// the final rename stays on one filesystem.
func (i *Installer) fetchToTemp(ctx context.Context, url string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(i.cfg.Tool.BinsDir, "download-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	cleanup := func() { os.Remove(tmpPath) }

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		cleanup()

		return "", nil, fmt.Errorf("write temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		cleanup()

		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	return tmpPath, cleanup, nil
}

// extractTarXZ pulls the target files out of a tar.xz archive into the bins
// directory, matching on base name regardless of archive layout.
func (i *Installer) extractTarXZ(archivePath string, targets map[string]struct{}) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("create xz reader: %w", err)
	}

	tarReader := tar.NewReader(xzReader)
	extracted := 0

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		name := filepath.Base(header.Name)
		if _, ok := targets[name]; !ok {
			continue
		}

		dest := filepath.Join(i.cfg.Tool.BinsDir, name)

		outFile, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
		if err != nil {
			return fmt.Errorf("create dest file: %w", err)
		}

		_, err = io.Copy(outFile, tarReader)
		outFile.Close()

		if err != nil {
			return fmt.Errorf("extract %s: %w", name, err)
		}

		extracted++

		if extracted == len(targets) {
			return nil
		}
	}

	return fmt.Errorf("archive missing %d of %d target files", len(targets)-extracted, len(targets))
}
