// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	App  App
	HTTP HTTP
	Dir  Dir
	Tool Tool
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"VIDRELAY_APP_LOG_LEVEL" envDefault:"info"`
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"VIDRELAY_HTTP_PORT"             envDefault:":3000"`
	MetadataTimeout time.Duration `env:"VIDRELAY_HTTP_METADATA_TIMEOUT" envDefault:"30s"`
	DownloadTimeout time.Duration `env:"VIDRELAY_HTTP_DOWNLOAD_TIMEOUT" envDefault:"30m"`
	ShutdownTimeout time.Duration `env:"VIDRELAY_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Dir holds filesystem configuration.
type Dir struct {
	// Workspace overrides the scratch directory for transient download
	// artifacts. Empty means a dedicated subdirectory under the system
	// temp root.
	Workspace string `env:"VIDRELAY_DIR_WORKSPACE" envDefault:""`

	// SubLangs is the language selector passed to the external tool for
	// subtitle downloads.
	// see: https://github.com/yt-dlp/yt-dlp#subtitle-options
	SubLangs string `env:"VIDRELAY_DIR_SUB_LANGS" envDefault:"en.*"`
}

// Tool holds external media tool configuration.
type Tool struct {
	// Path is an explicit path to the media tool binary. It wins over
	// every other lookup when set.
	Path string `env:"VIDRELAY_TOOL_PATH" envDefault:""`
	// BinsDir is the directory where managed binaries are stored.
	BinsDir string `env:"VIDRELAY_TOOL_BINS_DIR" envDefault:"./bins"`
	// AutoInstall downloads missing binaries into BinsDir at startup.
	AutoInstall bool `env:"VIDRELAY_TOOL_AUTO_INSTALL" envDefault:"false"`
	// DownloadTimeout is the HTTP client timeout for fetching binaries.
	DownloadTimeout time.Duration `env:"VIDRELAY_TOOL_DOWNLOAD_TIMEOUT" envDefault:"10m"`

	// Media tool binary URLs per platform.
	YTdlpLinuxAMD64 string `env:"VIDRELAY_TOOL_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll
	YTdlpLinuxARM64 string `env:"VIDRELAY_TOOL_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll

	// ffmpeg binary URLs per platform, needed by the tool for merge and
	// audio transcode steps. Shipped as tar.xz archives.
	FFmpegLinuxAMD64 string `env:"VIDRELAY_TOOL_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll
	FFmpegLinuxARM64 string `env:"VIDRELAY_TOOL_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
}

// SetAbsPaths converts configured paths to absolute paths.
func (t *Tool) SetAbsPaths() error {
	var err error
	if t.BinsDir, err = filepath.Abs(t.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	if t.Path != "" {
		if t.Path, err = filepath.Abs(t.Path); err != nil {
			return fmt.Errorf("tool path: %w", err)
		}
	}

	return nil
}

// SetAbsPaths converts the workspace override to an absolute path.
func (d *Dir) SetAbsPaths() error {
	if d.Workspace == "" {
		return nil
	}

	var err error
	if d.Workspace, err = filepath.Abs(d.Workspace); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}

	return nil
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.Tool.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set tool absolute paths: %w", err)
	}

	return cfg, nil
}
