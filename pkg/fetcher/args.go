package fetcher

// Reliability flags appended to every download run. Playlist expansion
// is disabled: a playlist URL yields its single referenced item.
var reliabilityArgs = []string{
	"--no-check-certificate",
	"--force-ipv4",
	"--no-warnings",
	"--ignore-errors",
	"--no-playlist",
}

// BuildArgs maps the requested format and quality to yt-dlp arguments.
func BuildArgs(format, quality string) []string {
	args := make([]string, 0, len(reliabilityArgs)+4)
	args = append(args, reliabilityArgs...)

	switch format {
	case "mp3":
		return append(args, "-x", "--audio-format", "mp3")
	case "jpg":
		return append(args, "--write-thumbnail", "--skip-download", "--convert-thumbnails", "jpg")
	case "mp4":
		return append(args, "-f", videoSelector("mp4", quality))
	case "webm":
		return append(args, "-f", videoSelector("webm", quality))
	}

	return args
}

func videoSelector(ext, quality string) string {
	switch quality {
	case "medium":
		return "bestvideo[height<=720][ext=" + ext + "]+bestaudio/best[height<=720]/best"
	case "low":
		return "bestvideo[height<=480][ext=" + ext + "]+bestaudio/best[height<=480]/best"
	}

	switch ext {
	case "webm":
		return "bestvideo[ext=webm]+bestaudio[ext=webm]/best[ext=webm]/best"
	default:
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	}
}
