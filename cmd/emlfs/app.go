package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/brandon/emlfs/internal/cache"
	"github.com/brandon/emlfs/internal/config"
	"github.com/brandon/emlfs/internal/loader"
	"github.com/brandon/emlfs/internal/render"
	"github.com/brandon/emlfs/internal/resolver"
	"github.com/brandon/emlfs/internal/vfs"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	registry *prometheus.Registry
	resolver *resolver.Resolver
	provider *vfs.Provider
	mounts   *vfs.ProjectionRegistry
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Stdout carries protocol and command output.
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	logger.SetLevel(cfg.Level())

	fs := afero.NewOsFs()
	loaders := loader.NewRegistry()
	res := resolver.New(cfg.Scheme, fs, loaders.Supports)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := cache.NewMetrics(registry)
	if err != nil {
		return err
	}

	parseCache, err := cache.New(fs, loaders, cache.Options{
		MaxEntries:      cfg.CacheMaxEntries,
		ValidateModTime: cfg.CacheValidateMTime,
		Metrics:         metrics,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.registry = registry
	a.resolver = res
	a.provider = vfs.NewProvider(res, parseCache, render.New(cfg.SanitizeHTML), logger)
	a.mounts = vfs.NewProjectionRegistry(fs, loaders, res, logger)
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		level, err := flags.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if flags.Changed("scheme") {
		scheme, err := flags.GetString("scheme")
		if err != nil {
			return err
		}
		cfg.Scheme = strings.ToLower(scheme)
	}
	if flags.Changed("metrics-addr") {
		addr, err := flags.GetString("metrics-addr")
		if err != nil {
			return err
		}
		cfg.MetricsAddr = addr
	}
	if flags.Changed("sanitize") {
		sanitize, err := flags.GetBool("sanitize")
		if err != nil {
			return err
		}
		cfg.SanitizeHTML = sanitize
	}
	return nil
}
