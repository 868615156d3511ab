// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultMetadataTimeout is the default timeout for a metadata-only tool invocation.
	DefaultMetadataTimeout = 30 * time.Second
	// DefaultDownloadTimeout is the default timeout for a full extraction invocation.
	DefaultDownloadTimeout = 30 * time.Minute
)

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespInvalidURL is returned when the url parameter is missing or invalid.
	RespInvalidURL = "missing or invalid url"
	// RespInvalidQuality is returned when the quality parameter is missing or malformed.
	RespInvalidQuality = "missing or invalid quality"
	// RespClientIDMissing is returned when a push-channel connect has no client id.
	RespClientIDMissing = "clientId query parameter is required"
	// RespInfoFetchFailed is returned when media info cannot be fetched.
	RespInfoFetchFailed = "failed to fetch media info"
	// RespDownloadFailed is returned when a video download fails.
	RespDownloadFailed = "video download failed"
	// RespAudioDownloadFailed is returned when an audio download fails.
	RespAudioDownloadFailed = "audio download failed"
	// RespSubtitleDownloadFailed is returned when a subtitle download fails.
	RespSubtitleDownloadFailed = "subtitle download failed"
	// RespNoSubtitles is returned when the video has no subtitles in the requested language.
	RespNoSubtitles = "no subtitles available: this video has no subtitles in the requested language, auto-generated included"
	// RespFileNotProduced is returned when the tool exits 0 without producing the expected file.
	RespFileNotProduced = "downloaded file not found"
)

// Status labels pushed alongside progress values.
const (
	// StatusDownloading is pushed while the transfer is active.
	StatusDownloading = "downloading"
	// StatusMerging is pushed while container streams are being merged.
	StatusMerging = "merging"
	// StatusConverting is pushed while audio is being transcoded.
	StatusConverting = "converting"
	// StatusDone is pushed once the output file is confirmed on disk.
	StatusDone = "done"
)
