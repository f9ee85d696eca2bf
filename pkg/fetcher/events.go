package fetcher

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

type EventType int

const (
	// EventProgress carries a percent parsed from a regular yt-dlp
	// progress line.
	EventProgress EventType = iota
	// EventBytes carries a percent computed from a "downloaded/total"
	// byte pair emitted via the progress template.
	EventBytes
	// EventFinished carries the final output filename.
	EventFinished
)

// Event is one parsed line of the yt-dlp output stream.
type Event struct {
	Type     EventType
	Percent  int
	Filename string
}

var (
	taggedLineRe = regexp.MustCompile(`^\[([a-zA-Z_]+)\]\s?(.*)$`)
	bytePairRe   = regexp.MustCompile(`^(\d+)/(\d+)$`)
	percentRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
)

// ParseEvent interprets one output line. Lines that carry no usable
// signal report ok=false and must be skipped, never treated as errors.
func ParseEvent(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false
	}

	// Byte pairs come straight from the progress template, with no tag.
	if ev, ok := parseBytePair(line); ok {
		return ev, true
	}

	m := taggedLineRe.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}
	tag, data := m[1], m[2]

	switch tag {
	case "finished":
		name := strings.TrimSpace(data)
		if name == "" {
			return Event{}, false
		}
		return Event{Type: EventFinished, Filename: name}, true
	case "download":
		if ev, ok := parseBytePair(strings.TrimSpace(data)); ok {
			return ev, true
		}
		if pm := percentRe.FindStringSubmatch(data); pm != nil {
			pct, err := strconv.ParseFloat(pm[1], 64)
			if err != nil {
				return Event{}, false
			}
			return Event{Type: EventProgress, Percent: int(math.Round(pct))}, true
		}
	}

	return Event{}, false
}

func parseBytePair(s string) (Event, bool) {
	m := bytePairRe.FindStringSubmatch(s)
	if m == nil {
		return Event{}, false
	}

	downloaded, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Event{}, false
	}
	total, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || total <= 0 {
		return Event{}, false
	}

	pct := int(math.Round(float64(downloaded) / float64(total) * 100))
	return Event{Type: EventBytes, Percent: pct}, true
}
