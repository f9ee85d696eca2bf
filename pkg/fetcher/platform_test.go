package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type platformTest struct {
	extractor string
	expected  string
}

var platformTests = []platformTest{
	{"youtube", "YouTube"},
	{"youtube:tab", "YouTube"},
	{"Instagram", "Instagram"},
	{"TikTok", "TikTok"},
	{"twitter", "Twitter"},
	{"x", "Twitter"},
	{"vimeo", "vimeo"},
	{"", "Unknown"},
}

func TestPlatformFromExtractor(t *testing.T) {
	for _, v := range platformTests {
		assert.Equal(t, v.expected, PlatformFromExtractor(v.extractor), "extractor %q", v.extractor)
	}
}
