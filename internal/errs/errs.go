// Package errs defines common error variables used across the application.
package errs

import "errors"

// Request validation errors. No process is spawned when these occur.
var (
	// ErrInvalidRequestBody indicates that the request body is invalid or cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
	// ErrInvalidURL indicates that the url parameter is missing or invalid.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidQuality indicates that the quality parameter is missing or malformed.
	ErrInvalidQuality = errors.New("invalid quality")
)

// Download lifecycle errors.
var (
	// ErrMetadataFetch indicates that the external tool failed while fetching media info.
	ErrMetadataFetch = errors.New("metadata fetch failed")
	// ErrExtraction indicates that the extraction process exited with a non-zero code.
	ErrExtraction = errors.New("extraction failed")
	// ErrOutputMissing indicates that the process exited 0 but the expected file is absent.
	ErrOutputMissing = errors.New("expected output file not produced")
	// ErrNoSubtitles indicates that no subtitle file exists for the requested language.
	ErrNoSubtitles = errors.New("no subtitles available")
)

// Process runner errors.
var (
	// ErrBinaryNotFound indicates that the external tool binary could not be located.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnparsableOutput indicates that the tool's stdout was not valid JSON.
	ErrUnparsableOutput = errors.New("unparsable tool output")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)
