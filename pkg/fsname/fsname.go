// Package fsname derives deterministic, filesystem-safe output filenames.
package fsname

import (
	"regexp"
	"strings"
	"time"
)

const dateLayout = "20060102"

// reIllegal matches characters that are not allowed in filenames on the
// common platforms, plus control characters.
var reIllegal = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// reUploadDate matches an already well-formed YYYYMMDD value.
var reUploadDate = regexp.MustCompile(`^\d{8}$`)

// Sanitize replaces characters illegal in filenames with underscores and
// trims surrounding whitespace. It is idempotent.
func Sanitize(title string) string {
	return strings.TrimSpace(reIllegal.ReplaceAllString(title, "_"))
}

// FormatDate normalizes an upload date to YYYYMMDD. An 8-digit value is
// returned unchanged; a parseable date is reformatted; anything else falls
// back to today.
func FormatDate(date string) string {
	if reUploadDate.MatchString(date) {
		return date
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format(dateLayout)
		}
	}

	return time.Now().Format(dateLayout)
}

// Build composes the deterministic output filename for a download:
// {uploadDate}_{sanitizedTitle}.{ext}.
func Build(uploadDate, title, ext string) string {
	return FormatDate(uploadDate) + "_" + Sanitize(title) + "." + ext
}

// Base composes the filename without extension, used as the output template
// base for subtitle downloads where the tool appends its own suffixes.
func Base(uploadDate, title string) string {
	return FormatDate(uploadDate) + "_" + Sanitize(title)
}
