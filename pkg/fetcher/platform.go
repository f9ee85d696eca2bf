package fetcher

import "strings"

const PlatformUnknown = "Unknown"

// PlatformFromExtractor turns a yt-dlp extractor id into the label
// shown to users. Unrecognized extractors pass through as-is.
func PlatformFromExtractor(extractor string) string {
	if extractor == "" {
		return PlatformUnknown
	}

	e := strings.ToLower(extractor)
	switch {
	case strings.Contains(e, "youtube"):
		return "YouTube"
	case strings.Contains(e, "instagram"):
		return "Instagram"
	case strings.Contains(e, "tiktok"):
		return "TikTok"
	case strings.Contains(e, "twitter"), strings.Contains(e, "x"):
		return "Twitter"
	}

	return extractor
}
