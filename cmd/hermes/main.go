package main

import (
	"flag"
	"os"

	"github.com/ValerySidorin/hermes/pkg/hermes"
	util_log "github.com/ValerySidorin/hermes/pkg/util/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v2"
)

func main() {
	var (
		cfg        hermes.Config
		configFile string
	)

	flag.StringVar(&configFile, "config.file", "", "Configuration file to load.")
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		util_log.CheckFatal("reading config file", err)
		util_log.CheckFatal("parsing config file", yaml.UnmarshalStrict(buf, &cfg))
	}

	util_log.InitLogger(&cfg.Log)

	h, err := hermes.New(cfg, prometheus.DefaultRegisterer)
	util_log.CheckFatal("initializing hermes", err)

	level.Info(util_log.Logger).Log("msg", "starting hermes")
	util_log.CheckFatal("running hermes", h.Run())
}
