package hermes

import (
	"context"
	"flag"

	"github.com/ValerySidorin/hermes/pkg/api"
	"github.com/ValerySidorin/hermes/pkg/downloader"
	"github.com/ValerySidorin/hermes/pkg/fetcher"
	"github.com/ValerySidorin/hermes/pkg/fetcher/installer"
	"github.com/ValerySidorin/hermes/pkg/job"
	util_log "github.com/ValerySidorin/hermes/pkg/util/log"
	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/weaveworks/common/server"
	"github.com/weaveworks/common/signals"
)

type Config struct {
	Server     server.Config     `yaml:"server"`
	Log        util_log.Config   `yaml:"log"`
	Fetcher    fetcher.Config    `yaml:"fetcher"`
	Installer  installer.Config  `yaml:"installer"`
	Downloader downloader.Config `yaml:"downloader"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.Server.RegisterFlags(f)
	c.Log.RegisterFlags(f)
	c.Fetcher.RegisterFlags(f)
	c.Installer.RegisterFlags(f)
	c.Downloader.RegisterFlags(f)
}

type Hermes struct {
	Cfg        Config
	Registerer prometheus.Registerer

	// set during initialization
	ServiceMap    map[string]services.Service
	ModuleManager *modules.Manager

	Server     *server.Server
	Registry   *job.Registry
	Fetcher    *fetcher.Fetcher
	Installer  *installer.Installer
	Downloader *downloader.Downloader
	API        *api.API
}

func New(cfg Config, reg prometheus.Registerer) (*Hermes, error) {
	h := &Hermes{
		Cfg:        cfg,
		Registerer: reg,
	}

	if err := h.setupModuleManager(); err != nil {
		return nil, errors.Wrap(err, "setup module manager")
	}

	return h, nil
}

// Run starts every module and blocks until a shutdown signal arrives.
func (h *Hermes) Run() error {
	serviceMap, err := h.ModuleManager.InitModuleServices(All)
	if err != nil {
		return errors.Wrap(err, "init module services")
	}
	h.ServiceMap = serviceMap

	sm, err := services.NewManager(lo.Values(serviceMap)...)
	if err != nil {
		return errors.Wrap(err, "init service manager")
	}

	sm.StartAsync(context.Background())
	if err := sm.AwaitHealthy(context.Background()); err != nil {
		return errors.Wrap(err, "start services")
	}

	handler := signals.NewHandler(h.Cfg.Log.Log)
	handler.Loop()

	sm.StopAsync()
	return sm.AwaitStopped(context.Background())
}
