package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os/exec"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// progressTemplate makes yt-dlp report raw "downloaded/total" byte pairs
// alongside its regular percent lines.
const progressTemplate = "%(progress.downloaded_bytes)s/%(progress.total_bytes)s"

type Config struct {
	BinaryPath   string        `yaml:"binary_path"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.BinaryPath, "fetcher.binary-path", "bin/yt-dlp", "Path to the yt-dlp binary.")
	f.DurationVar(&c.ProbeTimeout, "fetcher.probe-timeout", 30*time.Second, "Timeout for metadata probes.")
}

// Metadata is what a probe resolves about a source URL.
type Metadata struct {
	Title     string `json:"title"`
	Extractor string `json:"extractor"`
}

// Options select the media format and quality for one run.
type Options struct {
	Format  string
	Quality string
}

// Fetcher drives the yt-dlp binary as a subprocess.
type Fetcher struct {
	cfg Config
	log log.Logger
}

func New(cfg Config, log log.Logger) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		log: log,
	}
}

// Probe asks yt-dlp for source metadata without downloading anything.
func (f *Fetcher) Probe(ctx context.Context, url string) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.cfg.BinaryPath,
		"--dump-json", "--no-playlist", "--no-warnings", "--skip-download", url)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "probe url: %s", errText(&stderr))
	}

	meta := Metadata{}
	if err := json.Unmarshal(out.Bytes(), &meta); err != nil {
		return nil, errors.Wrap(err, "decode probe output")
	}

	return &meta, nil
}

// Run downloads the URL to the templated output path, feeding every
// parsed progress event to onEvent from this goroutine. It returns once
// the subprocess exits; a non-nil error carries yt-dlp's own error text.
func (f *Fetcher) Run(ctx context.Context, url, outputTemplate string, opts Options, onEvent func(Event)) error {
	args := append([]string{url, "-o", outputTemplate}, BuildArgs(opts.Format, opts.Quality)...)
	args = append(args, "--newline", "--progress-template", progressTemplate)

	level.Debug(f.log).Log("msg", "launching yt-dlp", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, f.cfg.BinaryPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "attach to yt-dlp stdout")
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "spawn yt-dlp")
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ev, ok := ParseEvent(scanner.Text())
		if !ok {
			continue
		}
		onEvent(ev)
	}
	if scanErr := scanner.Err(); scanErr != nil {
		// Stream anomalies are not fatal; the exit code decides.
		level.Warn(f.log).Log("msg", "reading yt-dlp output", "err", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.Wrapf(err, "yt-dlp failed: %s", errText(&stderr))
	}

	return nil
}

// errText pulls the most useful line out of yt-dlp's stderr.
func errText(stderr *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "ERROR:") {
			return strings.TrimSpace(lines[i])
		}
	}
	if len(lines) > 0 {
		return strings.TrimSpace(lines[len(lines)-1])
	}
	return ""
}
