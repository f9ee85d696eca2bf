package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type eventTest struct {
	line string
	ok   bool
	ev   Event
}

var eventTests = []eventTest{
	{"500/1000", true, Event{Type: EventBytes, Percent: 50}},
	{"[download] 500/1000", true, Event{Type: EventBytes, Percent: 50}},
	{"333/1000", true, Event{Type: EventBytes, Percent: 33}},
	{"999/1000", true, Event{Type: EventBytes, Percent: 100}},
	{"[download]  42.7% of 10.00MiB at 1.21MiB/s ETA 00:05", true, Event{Type: EventProgress, Percent: 43}},
	{"[download] 100% of 10.00MiB in 00:08", true, Event{Type: EventProgress, Percent: 100}},
	{"[finished]   myfile.mp4  ", true, Event{Type: EventFinished, Filename: "myfile.mp4"}},
	{"0/0", false, Event{}},
	{"500/0", false, Event{}},
	{"[finished] ", false, Event{}},
	{"[youtube] dQw4w9WgXcQ: Downloading webpage", false, Event{}},
	{"[Merger] Merging formats", false, Event{}},
	{"WARNING: something odd", false, Event{}},
	{"", false, Event{}},
	{"garbage line", false, Event{}},
}

func TestParseEvent(t *testing.T) {
	for _, v := range eventTests {
		ev, ok := ParseEvent(v.line)
		assert.Equal(t, v.ok, ok, "line %q", v.line)
		if v.ok {
			assert.Equal(t, v.ev, ev, "line %q", v.line)
		}
	}
}
