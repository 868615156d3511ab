// Package progress parses the external tool's status lines into normalized
// progress events.
//
// The tool's stdout format is a best-effort text contract, not an API. Active
// transfer lines report a percentage, but post-processing (merge, audio
// convert, cleanup) only shows up as separate textual markers afterwards, so
// transfer percentages are capped at 99 and 100 is reserved for the marker
// the tool prints once post-processing is done. If the tool ever rephrases
// those markers, completion stops triggering; that fragility is inherent to
// scraping free text and is kept as documented behavior.
package progress

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Progress values outside active transfer.
const (
	// maxTransferProgress caps percentages parsed from transfer lines.
	maxTransferProgress = 99
	// postProcessProgress is reported while merging or converting.
	postProcessProgress = 99.5
	// fullProgress is reported only on the tool's cleanup marker.
	fullProgress = 100
)

// Phase labels carried by events.
const (
	PhaseDownloading = "downloading"
	PhaseMerging     = "merging"
	PhaseConverting  = "converting"
	PhaseComplete    = "complete"
)

// Line shapes recognized in the tool's output:
//
//	[download]  45.2% of ~  85.49MiB at    2.48MiB/s ETA 00:27
//	[download]   9.6% of ~  12.23MiB at  Unknown B/s ETA Unknown (frag 3/31)
//	[download] Got error ... (frag 4/17)
//	[Merger] Merging formats into "file.mp4"
//	[ExtractAudio] Destination: file.mp3
//	Deleting original file file.f137.mp4 (pass -k to keep)
var (
	rePercent = regexp.MustCompile(
		`([\d.]+)%\s+of\s+~?\s*([\d.]+\s*\w+)` +
			`(?:\s+at\s+([\d.]+\s*\w+/s))?` +
			`(?:\s+ETA\s+([\d:]+))?`)
	reFrag           = regexp.MustCompile(`\(frag\s+(\d+)/(\d+)\)`)
	reMerger         = regexp.MustCompile(`\[Merger\]`)
	reExtractAudio   = regexp.MustCompile(`\[ExtractAudio\]`)
	reDeleteOriginal = regexp.MustCompile(`Deleting original file`)
)

// Event is one normalized status update derived from a single output line.
type Event struct {
	Percent float64
	Phase   string
	Size    string
	Speed   string
	ETA     string
}

// ParseChunk scans a chunk of raw output for status lines and returns the
// events found, in output order. Chunks without recognizable markers yield
// nothing; most output lines are not progress lines.
func ParseChunk(chunk string) []Event {
	var events []Event

	for line := range strings.Lines(chunk) {
		if ev, ok := ParseLine(line); ok {
			events = append(events, ev)
		}
	}

	return events
}

// ParseLine parses a single output line. The second return value reports
// whether the line carried a recognizable status marker.
func ParseLine(line string) (Event, bool) {
	if reDeleteOriginal.MatchString(line) {
		return Event{Percent: fullProgress, Phase: PhaseComplete}, true
	}

	if reMerger.MatchString(line) {
		return Event{Percent: postProcessProgress, Phase: PhaseMerging}, true
	}

	if reExtractAudio.MatchString(line) {
		return Event{Percent: postProcessProgress, Phase: PhaseConverting}, true
	}

	if m := rePercent.FindStringSubmatch(line); m != nil {
		percent, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Event{}, false
		}

		return Event{
			Percent: math.Min(percent, maxTransferProgress),
			Phase:   PhaseDownloading,
			Size:    strings.TrimSpace(m[2]),
			Speed:   strings.TrimSpace(m[3]),
			ETA:     m[4],
		}, true
	}

	if m := reFrag.FindStringSubmatch(line); m != nil {
		current, err := strconv.Atoi(m[1])
		if err != nil {
			return Event{}, false
		}

		total, err := strconv.Atoi(m[2])
		if err != nil || total == 0 {
			return Event{}, false
		}

		percent := float64(current) / float64(total) * 100
		percent = math.Round(percent*10) / 10

		return Event{
			Percent: math.Min(percent, maxTransferProgress),
			Phase:   PhaseDownloading,
		}, true
	}

	return Event{}, false
}
