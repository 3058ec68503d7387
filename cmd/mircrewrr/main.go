// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/easly1989/mircrewrr/internal/api"
	"github.com/easly1989/mircrewrr/internal/buildinfo"
	"github.com/easly1989/mircrewrr/internal/config"
	"github.com/easly1989/mircrewrr/internal/flaresolverr"
	"github.com/easly1989/mircrewrr/internal/forum"
	"github.com/easly1989/mircrewrr/internal/indexer"
	"github.com/easly1989/mircrewrr/internal/metrics"
	"github.com/easly1989/mircrewrr/internal/store"
)

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	var rootCmd = &cobra.Command{
		Use:   "mircrewrr",
		Short: "Torznab proxy for the MIRCrew release forum",
		Long: `mircrewrr - a Torznab-compatible indexer in front of the MIRCrew
release forum, handling login, search and the per-topic unlock so that
Prowlarr and friends can treat the forum like any other tracker.`,
	}

	rootCmd.Version = buildinfo.Version

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand())
	rootCmd.AddCommand(RunGenerateConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var (
		configDir string
		dataDir   string
		logPath   string
		pprofFlag bool
	)

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the Torznab server",
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/mircrewrr/). Can also be a direct path to a .toml file")
	command.Flags().StringVar(&dataDir, "data-dir", "", "data directory for session and unlock snapshots (default is next to config file)")
	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stdout)")
	command.Flags().BoolVar(&pprofFlag, "pprof", false, "enable pprof server on :6060")

	command.Run = func(cmd *cobra.Command, args []string) {
		app := NewApplication(configDir, dataDir, logPath, pprofFlag)
		app.runServer()
	}

	return command
}

func RunVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of mircrewrr",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(buildinfo.String())
		},
	}
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the server.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/mircrewrr/config.toml
- Windows: %APPDATA%\mircrewrr\config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var configPath string
			if configDir != "" {
				if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
					configPath = configDir
				} else if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
					configPath = configDir
				} else {
					configPath = filepath.Join(configDir, "config.toml")
				}
			} else {
				configPath = filepath.Join(config.GetDefaultConfigDir(), "config.toml")
			}

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")

	return command
}

type Application struct {
	configDir string
	dataDir   string
	logPath   string
	pprofFlag bool
}

func NewApplication(configDir, dataDir, logPath string, pprofFlag bool) *Application {
	return &Application{
		configDir: configDir,
		dataDir:   dataDir,
		logPath:   logPath,
		pprofFlag: pprofFlag,
	}
}

func (app *Application) runServer() {
	cfg, err := config.New(app.configDir, buildinfo.Version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize config")
	}

	if app.dataDir != "" {
		cfg.SetDataDir(app.dataDir)
	}
	if app.logPath != "" {
		cfg.Config.LogPath = app.logPath
	}
	if app.pprofFlag {
		cfg.Config.PprofEnabled = true
	}

	cfg.ApplyLogConfig()

	log.Info().
		Str("version", buildinfo.Version).
		Str("commit", buildinfo.Commit).
		Str("forum", cfg.Config.ForumURL).
		Msg("Starting mircrewrr")

	st, err := store.New(cfg.GetDataDir())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize data store")
	}

	resolver := flaresolverr.NewClient(cfg.Config.FlaresolverrURL)
	if !resolver.Enabled() {
		log.Info().Msg("No FlareSolverr configured, assuming direct forum access")
	}

	forumClient, err := forum.NewClient(forum.Config{
		BaseURL:      cfg.Config.ForumURL,
		Username:     cfg.Config.ForumUsername,
		Password:     cfg.Config.ForumPassword,
		SessionTTL:   cfg.Config.SessionTTL,
		CookieMaxAge: cfg.Config.CookieMaxAge,
		SettleDelay:  cfg.Config.UnlockSettleDelay,
	}, st, resolver)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize forum client")
	}

	indexerOpts := []indexer.ServiceOption{
		indexer.WithResultLimit(cfg.Config.ResultLimit),
	}

	var metricsManager *metrics.Manager
	if cfg.Config.MetricsEnabled {
		metricsManager = metrics.NewManager(forumClient, st)
		indexerOpts = append(indexerOpts, indexer.WithUnlockHook(metricsManager.RecordUnlock))
	}

	indexerService := indexer.NewService(forumClient, st, indexerOpts...)

	httpServer := api.NewServer(&api.Dependencies{
		Config:         cfg,
		Version:        buildinfo.Version,
		IndexerService: indexerService,
		ForumClient:    forumClient,
		Store:          st,
		MetricsManager: metricsManager,
	})

	errorChannel := make(chan error)
	serverReady := make(chan struct{}, 1)
	go func() {
		if err := httpServer.ListenAndServeReady(serverReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()

	select {
	case <-serverReady:
	case err := <-errorChannel:
		log.Fatal().Err(err).Msg("failed to start HTTP server")
	}

	if metricsManager != nil {
		go func() {
			metricsServer := metrics.NewServer(
				metricsManager,
				cfg.Config.MetricsHost,
				cfg.Config.MetricsPort,
			)
			errorChannel <- metricsServer.ListenAndServe()
		}()
	}

	if cfg.Config.PprofEnabled {
		go func() {
			log.Info().Msg("Starting pprof server on :6060")
			if err := http.ListenAndServe(":6060", nil); err != nil {
				log.Error().Err(err).Msg("Profiling server failed")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("got signal %v, shutting down server", sig.String())
	case err := <-errorChannel:
		log.Error().Err(err).Msg("got unexpected error from server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("got error during graceful http shutdown")
		os.Exit(1)
	}

	os.Exit(0)
}
