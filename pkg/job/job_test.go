package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitionsNeverLeaveTerminal(t *testing.T) {
	j := newJob("1", "https://x.test/video")
	assert.Equal(t, StatusPending, j.Status())

	j.MarkDownloading()
	assert.Equal(t, StatusDownloading, j.Status())

	j.Fail("boom")
	assert.Equal(t, StatusFailed, j.Status())

	// Terminal is terminal.
	j.MarkDownloading()
	assert.Equal(t, StatusFailed, j.Status())
	j.Complete("1.mp4", "/downloads/1.mp4")
	assert.Equal(t, StatusFailed, j.Status())
	assert.Empty(t, j.Snapshot().Filename)
}

func TestCompleteSetsArtifactAndFullProgress(t *testing.T) {
	j := newJob("42", "https://x.test/video")
	j.MarkDownloading()
	j.SetProgress(73)
	j.Complete("42.mp4", "/downloads/42.mp4")

	v := j.Snapshot()
	assert.Equal(t, StatusCompleted, v.Status)
	assert.Equal(t, 100, v.Progress)
	assert.Equal(t, "42.mp4", v.Filename)
	assert.Equal(t, "/downloads/42.mp4", v.DownloadURL)
	assert.Empty(t, v.Error)

	// Nothing moves after completion.
	j.SetProgress(10)
	j.Fail("late failure")
	v = j.Snapshot()
	assert.Equal(t, StatusCompleted, v.Status)
	assert.Equal(t, 100, v.Progress)
	assert.Empty(t, v.Error)
}

type progressTest struct {
	in       int
	expected int
}

var progressTests = []progressTest{
	{-5, 0},
	{0, 0},
	{50, 50},
	{100, 100},
	{150, 100},
}

func TestSetProgressClamps(t *testing.T) {
	for _, v := range progressTests {
		j := newJob("1", "https://x.test/video")
		j.MarkDownloading()
		j.SetProgress(v.in)
		assert.Equal(t, v.expected, j.Snapshot().Progress)
	}
}

func TestFailWithoutMessageGetsDefault(t *testing.T) {
	j := newJob("1", "https://x.test/video")
	j.Fail("")
	assert.Equal(t, "download failed", j.Snapshot().Error)
}

func TestSnapshotDefaults(t *testing.T) {
	j := newJob("1", "https://x.test/video")
	v := j.Snapshot()
	assert.Equal(t, StatusPending, v.Status)
	assert.Equal(t, 0, v.Progress)
	assert.Equal(t, "Unknown", v.Platform)
	assert.Empty(t, v.Filename)
	assert.Empty(t, v.DownloadURL)
}
