package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type argsTest struct {
	format   string
	quality  string
	expected []string
}

var argsTests = []argsTest{
	{"mp3", "best", []string{"-x", "--audio-format", "mp3"}},
	{"mp3", "low", []string{"-x", "--audio-format", "mp3"}},
	{"mp4", "best", []string{"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"}},
	{"mp4", "medium", []string{"-f", "bestvideo[height<=720][ext=mp4]+bestaudio/best[height<=720]/best"}},
	{"mp4", "low", []string{"-f", "bestvideo[height<=480][ext=mp4]+bestaudio/best[height<=480]/best"}},
	{"webm", "best", []string{"-f", "bestvideo[ext=webm]+bestaudio[ext=webm]/best[ext=webm]/best"}},
	{"webm", "medium", []string{"-f", "bestvideo[height<=720][ext=webm]+bestaudio/best[height<=720]/best"}},
	{"webm", "low", []string{"-f", "bestvideo[height<=480][ext=webm]+bestaudio/best[height<=480]/best"}},
	{"jpg", "best", []string{"--write-thumbnail", "--skip-download", "--convert-thumbnails", "jpg"}},
	{"", "", nil},
}

func TestBuildArgs(t *testing.T) {
	for _, v := range argsTests {
		args := BuildArgs(v.format, v.quality)

		expected := append([]string{}, reliabilityArgs...)
		expected = append(expected, v.expected...)
		assert.Equal(t, expected, args, "format=%s quality=%s", v.format, v.quality)
	}
}

func TestBuildArgsAlwaysCarriesReliabilityFlags(t *testing.T) {
	for _, format := range []string{"mp3", "mp4", "webm", "jpg", ""} {
		args := BuildArgs(format, "best")
		assert.Subset(t, args, []string{"--no-check-certificate", "--force-ipv4", "--no-warnings", "--ignore-errors", "--no-playlist"})
	}
}
