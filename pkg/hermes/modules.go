package hermes

import (
	"context"

	"github.com/ValerySidorin/hermes/pkg/api"
	"github.com/ValerySidorin/hermes/pkg/downloader"
	"github.com/ValerySidorin/hermes/pkg/fetcher"
	"github.com/ValerySidorin/hermes/pkg/fetcher/installer"
	"github.com/ValerySidorin/hermes/pkg/job"
	util_log "github.com/ValerySidorin/hermes/pkg/util/log"
	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/services"
	"github.com/weaveworks/common/server"
)

const (
	Server     = "server"
	Installer  = "installer"
	Downloader = "downloader"
	API        = "api"
	All        = "all"
)

func (h *Hermes) initServer() (services.Service, error) {
	h.Cfg.Server.Log = h.Cfg.Log.Log

	srv, err := server.New(h.Cfg.Server)
	if err != nil {
		return nil, err
	}
	h.Server = srv

	running := func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Run()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return nil
		}
	}
	stopping := func(_ error) error {
		srv.Shutdown()
		return nil
	}

	return services.NewBasicService(nil, running, stopping), nil
}

func (h *Hermes) initInstaller() (services.Service, error) {
	h.Installer = installer.New(h.Cfg.Installer, util_log.Logger)

	// One-shot: the service is healthy once the binary is in place.
	return services.NewIdleService(h.Installer.EnsureInstalled, nil), nil
}

func (h *Hermes) initDownloader() (services.Service, error) {
	h.Fetcher = fetcher.New(h.Cfg.Fetcher, util_log.Logger)

	d, err := downloader.New(h.Cfg.Downloader, h.Fetcher, h.Registerer, util_log.Logger)
	if err != nil {
		return nil, err
	}
	h.Downloader = d

	return d, nil
}

func (h *Hermes) initAPI() (services.Service, error) {
	h.Registry = job.NewRegistry()
	h.API = api.New(h.Registry, h.Fetcher, h.Downloader, h.Cfg.Downloader.OutputDir, util_log.Logger)
	h.API.RegisterRoutes(h.Server.HTTP)

	return nil, nil
}

func (h *Hermes) setupModuleManager() error {
	mm := modules.NewManager(util_log.Logger)

	mm.RegisterModule(Server, h.initServer, modules.UserInvisibleModule)
	mm.RegisterModule(Installer, h.initInstaller, modules.UserInvisibleModule)
	mm.RegisterModule(Downloader, h.initDownloader, modules.UserInvisibleModule)
	mm.RegisterModule(API, h.initAPI, modules.UserInvisibleModule)
	mm.RegisterModule(All, nil)

	deps := map[string][]string{
		Downloader: {Installer},
		API:        {Server, Downloader},
		All:        {Server, Installer, Downloader, API},
	}
	for mod, targets := range deps {
		if err := mm.AddDependency(mod, targets...); err != nil {
			return err
		}
	}

	h.ModuleManager = mm
	return nil
}
