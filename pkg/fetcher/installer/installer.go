package installer

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	util_http "github.com/ValerySidorin/hermes/pkg/util/http"
	"github.com/cavaliergopher/grab/v3"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const latestReleaseURL = "https://api.github.com/repos/yt-dlp/yt-dlp/releases/latest"

type Config struct {
	BinaryPath string        `yaml:"binary_path"`
	ReleaseURL string        `yaml:"release_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryMax   int           `yaml:"retry_max"`
	BufferSize int           `yaml:"buffer_size"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.BinaryPath, "installer.binary-path", "bin/yt-dlp", "Where the yt-dlp binary is installed.")
	f.StringVar(&c.ReleaseURL, "installer.release-url", latestReleaseURL, "GitHub API endpoint resolving the latest yt-dlp release.")
	f.DurationVar(&c.Timeout, "installer.timeout", 30*time.Second, "Timeout for release lookups.")
	f.IntVar(&c.RetryMax, "installer.retry-max", 3, "Max retries for release lookups.")
	f.IntVar(&c.BufferSize, "installer.buffer-size", 4096, "Download buffer size.")
}

type release struct {
	TagName string  `json:"tag_name"`
	Assets  []asset `json:"assets"`
}

type asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

// Installer fetches the yt-dlp binary from GitHub releases when it is
// not already present on disk.
type Installer struct {
	cfg        Config
	httpClient *retryablehttp.Client
	grabClient *grab.Client
	log        log.Logger
}

func New(cfg Config, log log.Logger) *Installer {
	hc := retryablehttp.NewClient()
	hc.RetryMax = cfg.RetryMax
	hc.HTTPClient.Timeout = cfg.Timeout

	gc := grab.NewClient()
	gc.BufferSize = cfg.BufferSize

	return &Installer{
		cfg:        cfg,
		httpClient: hc,
		grabClient: gc,
		log:        log,
	}
}

// EnsureInstalled makes the configured binary path usable, downloading
// the latest release if nothing is there yet.
func (i *Installer) EnsureInstalled(ctx context.Context) error {
	if _, err := os.Stat(i.cfg.BinaryPath); err == nil {
		level.Debug(i.log).Log("msg", "fetcher binary already present", "path", i.cfg.BinaryPath)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "stat fetcher binary")
	}

	rel, err := i.latestRelease()
	if err != nil {
		return errors.Wrap(err, "resolve latest fetcher release")
	}

	wanted := assetNameForPlatform()
	a, found := lo.Find(rel.Assets, func(item asset) bool {
		return item.Name == wanted
	})
	if !found {
		return errors.Errorf("release %s has no asset %q", rel.TagName, wanted)
	}

	if err := os.MkdirAll(filepath.Dir(i.cfg.BinaryPath), 0o755); err != nil {
		return errors.Wrap(err, "create fetcher bin dir")
	}

	level.Info(i.log).Log("msg", "installing fetcher binary", "version", rel.TagName, "url", a.DownloadURL)
	if err := i.download(ctx, a.DownloadURL); err != nil {
		return err
	}

	if err := os.Chmod(i.cfg.BinaryPath, 0o755); err != nil {
		return errors.Wrap(err, "chmod fetcher binary")
	}

	level.Info(i.log).Log("msg", "fetcher binary installed", "path", i.cfg.BinaryPath)
	return nil
}

func (i *Installer) latestRelease() (*release, error) {
	resp, err := i.httpClient.Get(i.cfg.ReleaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "get latest release")
	}
	defer resp.Body.Close()

	if err := util_http.EnsureSuccessStatusCode(resp); err != nil {
		return nil, errors.Wrap(err, "get latest release")
	}

	rel := release{}
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, errors.Wrap(err, "decode latest release")
	}

	return &rel, nil
}

func (i *Installer) download(ctx context.Context, url string) error {
	req, err := grab.NewRequest(i.cfg.BinaryPath, url)
	if err != nil {
		return errors.Wrap(err, "installer create request")
	}
	req = req.WithContext(ctx)

	t := time.NewTicker(1 * time.Second)
	defer t.Stop()

	resp := i.grabClient.Do(req)

Loop:
	for {
		select {
		case <-t.C:
			level.Debug(i.log).Log("msg", fmt.Sprintf("transferred %d / %d bytes (%.2f%%)",
				resp.BytesComplete(),
				resp.Size(),
				100*resp.Progress()))
		case <-resp.Done:
			break Loop
		}
	}

	if err := resp.Err(); err != nil {
		return errors.Wrap(err, "installer download binary")
	}

	return nil
}

func assetNameForPlatform() string {
	switch runtime.GOOS {
	case "windows":
		return "yt-dlp.exe"
	case "darwin":
		return "yt-dlp_macos"
	default:
		return "yt-dlp"
	}
}
