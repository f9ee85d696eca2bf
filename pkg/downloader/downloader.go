package downloader

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ValerySidorin/hermes/pkg/fetcher"
	"github.com/ValerySidorin/hermes/pkg/job"
	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/atomic"
)

// Temp artifacts yt-dlp leaves next to the real file while downloading.
var skippedExtensions = []string{".part", ".ytdl"}

const errFileNotFound = "completed but file not found"

type Config struct {
	OutputDir       string        `yaml:"output_dir"`
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.OutputDir, "downloader.output-dir", "uploads", "Directory completed artifacts are written to.")
	f.IntVar(&c.Workers, "downloader.workers", 4, "Max concurrent downloads.")
	f.IntVar(&c.QueueSize, "downloader.queue-size", 100, "Pending download queue size.")
	f.DurationVar(&c.DownloadTimeout, "downloader.download-timeout", 30*time.Minute, "Per download timeout. A run exceeding it is killed and failed.")
}

// MediaFetcher is the slice of pkg/fetcher the runner needs.
type MediaFetcher interface {
	Probe(ctx context.Context, url string) (*fetcher.Metadata, error)
	Run(ctx context.Context, url, outputTemplate string, opts fetcher.Options, onEvent func(fetcher.Event)) error
}

type request struct {
	job  *job.Job
	opts fetcher.Options
}

// Downloader owns the lifecycle of every accepted job: it launches the
// fetcher, folds its event stream into job state and resolves the final
// artifact on disk. Each job is driven by exactly one worker goroutine,
// so job mutation needs no coordination beyond the job's own lock.
type Downloader struct {
	services.Service

	cfg     Config
	log     gklog.Logger
	fetcher MediaFetcher

	jobCh      chan request
	workerPool *pool.Pool
	active     *atomic.Int64

	cancelsMtx sync.Mutex
	cancels    map[string]context.CancelFunc

	downloads *prometheus.CounterVec
	duration  prometheus.Histogram
}

func New(cfg Config, f MediaFetcher, reg prometheus.Registerer, log gklog.Logger) (*Downloader, error) {
	if cfg.Workers <= 0 {
		return nil, errors.New("downloader workers must be positive")
	}

	log = gklog.With(log, "service", "downloader")

	d := &Downloader{
		cfg:        cfg,
		log:        log,
		fetcher:    f,
		jobCh:      make(chan request, cfg.QueueSize),
		workerPool: pool.New().WithMaxGoroutines(cfg.Workers),
		active:     atomic.NewInt64(0),
		cancels:    make(map[string]context.CancelFunc),
	}

	d.downloads = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "hermes_downloads_total",
		Help: "Downloads reaching a terminal state, by status.",
	}, []string{"status"})
	d.duration = promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
		Name:    "hermes_download_duration_seconds",
		Help:    "Wall time of a download run.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "hermes_active_downloads",
		Help: "Downloads currently running.",
	}, func() float64 { return float64(d.active.Load()) })

	d.Service = services.NewBasicService(d.starting, d.running, d.stopping)

	return d, nil
}

func (d *Downloader) starting(_ context.Context) error {
	if err := os.MkdirAll(d.cfg.OutputDir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	return nil
}

func (d *Downloader) running(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-d.jobCh:
			d.workerPool.Go(func() {
				d.runJob(ctx, req.job, req.opts)
			})
		}
	}
}

func (d *Downloader) stopping(_ error) error {
	d.workerPool.Wait()
	return nil
}

// Enqueue hands a freshly created job to the worker pool. It never
// blocks the calling request; a full queue fails the job instead.
func (d *Downloader) Enqueue(j *job.Job, opts fetcher.Options) error {
	select {
	case d.jobCh <- request{job: j, opts: opts}:
		return nil
	default:
		return errors.New("download queue is full")
	}
}

// Cancel fails the job and, if its fetcher run is in flight, kills it.
// Canceling a job already in a terminal state is a no-op.
func (d *Downloader) Cancel(j *job.Job) {
	j.Fail("download canceled")

	d.cancelsMtx.Lock()
	cancel, ok := d.cancels[j.ID()]
	d.cancelsMtx.Unlock()

	if ok {
		cancel()
	}
}

func (d *Downloader) runJob(ctx context.Context, j *job.Job, opts fetcher.Options) {
	// Canceled while still queued.
	if j.Status().IsTerminal() {
		return
	}

	started := time.Now()
	d.active.Inc()
	defer d.active.Dec()

	ctx, cancel := context.WithTimeout(ctx, d.cfg.DownloadTimeout)
	defer cancel()
	d.registerCancel(j.ID(), cancel)
	defer d.unregisterCancel(j.ID())

	j.MarkDownloading()
	level.Info(d.log).Log("msg", "starting download", "job", j.ID(), "url", j.URL(), "format", opts.Format, "quality", opts.Quality)

	// Best effort: a failed probe only costs us the platform label.
	if meta, err := d.fetcher.Probe(ctx, j.URL()); err != nil {
		level.Warn(d.log).Log("msg", "metadata probe failed", "job", j.ID(), "err", err.Error())
	} else {
		j.SetPlatform(fetcher.PlatformFromExtractor(meta.Extractor))
	}

	// The job id is the filename stem; the extension is yt-dlp's call.
	outputTemplate := filepath.Join(d.cfg.OutputDir, j.ID()+".%(ext)s")

	var finished string
	err := d.fetcher.Run(ctx, j.URL(), outputTemplate, opts, func(ev fetcher.Event) {
		switch ev.Type {
		case fetcher.EventProgress, fetcher.EventBytes:
			j.SetProgress(ev.Percent)
		case fetcher.EventFinished:
			finished = ev.Filename
		}
	})
	if err != nil {
		d.failJob(j, err, started)
		return
	}

	filename, err := d.resolveArtifact(j.ID(), finished)
	if err != nil {
		level.Error(d.log).Log("msg", "resolve artifact", "job", j.ID(), "err", err.Error())
		j.Fail(errFileNotFound)
		d.observe(job.StatusFailed, started)
		return
	}

	j.Complete(filename, "/downloads/"+filename)
	d.observe(job.StatusCompleted, started)
	level.Info(d.log).Log("msg", "download completed", "job", j.ID(), "file", filename, "took", time.Since(started))
}

func (d *Downloader) failJob(j *job.Job, err error, started time.Time) {
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = "download timed out"
	case errors.Is(err, context.Canceled):
		msg = "download canceled"
	}

	level.Error(d.log).Log("msg", "download failed", "job", j.ID(), "err", err.Error())
	j.Fail(msg)
	d.observe(job.StatusFailed, started)
}

// resolveArtifact finds the produced file and normalizes its name to
// "{id}.{ext}". The fetcher's own finished report wins; the directory
// scan is the side channel for runs that never emit one.
func (d *Downloader) resolveArtifact(id, finished string) (string, error) {
	name := filepath.Base(finished)
	if finished == "" {
		found, err := d.scanOutputDir(id)
		if err != nil {
			return "", err
		}
		name = found
	}

	normalized := id + filepath.Ext(name)
	if name != normalized {
		oldPath := filepath.Join(d.cfg.OutputDir, name)
		newPath := filepath.Join(d.cfg.OutputDir, normalized)
		if err := os.Rename(oldPath, newPath); err != nil {
			return "", errors.Wrap(err, "normalize artifact name")
		}
	}

	if _, err := os.Stat(filepath.Join(d.cfg.OutputDir, normalized)); err != nil {
		return "", errors.Wrap(err, "stat artifact")
	}

	return normalized, nil
}

func (d *Downloader) scanOutputDir(id string) (string, error) {
	entries, err := os.ReadDir(d.cfg.OutputDir)
	if err != nil {
		return "", errors.Wrap(err, "read output dir")
	}

	entry, found := lo.Find(entries, func(e os.DirEntry) bool {
		if e.IsDir() || !strings.HasPrefix(e.Name(), id) {
			return false
		}
		return !lo.SomeBy(skippedExtensions, func(ext string) bool {
			return strings.HasSuffix(e.Name(), ext)
		})
	})
	if !found {
		return "", errors.Errorf("no artifact with stem %q", id)
	}

	return entry.Name(), nil
}

func (d *Downloader) observe(status job.Status, started time.Time) {
	d.downloads.WithLabelValues(string(status)).Inc()
	d.duration.Observe(time.Since(started).Seconds())
}

func (d *Downloader) registerCancel(id string, cancel context.CancelFunc) {
	d.cancelsMtx.Lock()
	defer d.cancelsMtx.Unlock()
	d.cancels[id] = cancel
}

func (d *Downloader) unregisterCancel(id string) {
	d.cancelsMtx.Lock()
	defer d.cancelsMtx.Unlock()
	delete(d.cancels, id)
}
