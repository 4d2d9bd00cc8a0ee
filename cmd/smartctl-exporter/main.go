// Package main is the entry point for the smartctl exporter.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"smartctlexporter/internal/blockdev"
	"smartctlexporter/internal/command"
	"smartctlexporter/internal/config"
	"smartctlexporter/internal/exporter"
	"smartctlexporter/internal/logger"
	"smartctlexporter/internal/rules"
	"smartctlexporter/internal/server"
	"smartctlexporter/internal/service"
	"smartctlexporter/internal/smartctl"
)

const programName = "smartctl-exporter"

var (
	version   = "dev"
	buildTime = "unknown"
)

// patternList collects a repeatable string flag.
type patternList []string

func (p *patternList) String() string { return strings.Join(*p, ",") }

func (p *patternList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	var (
		address     = flag.String("l", "0.0.0.0", "Address to listen on")
		port        = flag.Int("p", 9587, "Port to listen on")
		verbose     = flag.Bool("v", false, "Enable verbose (trace) logging")
		prependSudo = flag.Bool("a", false, "Prepend sudo to smartctl invocations")
		configPath  = flag.String("config", "", "Path to optional JSON configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		excludes    patternList
	)
	flag.Var(&excludes, "e", "Exclude devices whose name matches this regular expression (repeatable)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (built %s)\n", programName, version, buildTime)
		os.Exit(0)
	}

	// Only flags given on the command line override the file.
	overlay := &config.Config{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "l":
			overlay.ListenAddress = *address
		case "p":
			overlay.ListenPort = *port
		case "v":
			overlay.Verbose = *verbose
		case "a":
			overlay.PrependSudo = *prependSudo
		case "e":
			overlay.ExcludePatterns = excludes
		}
	})

	cfg, err := loadConfig(*configPath, overlay)
	if err != nil {
		fail(cfg, err)
	}

	compiled, err := cfg.CompileExcludes()
	if err != nil {
		fail(cfg, err)
	}

	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		fail(cfg, fmt.Errorf("failed to initialize logger: %w", err))
	}
	defer logger.Close()

	log := logger.WithComponent("main")
	log.Info().
		Str("version", version).
		Str("listen", cfg.ListenAddr()).
		Bool("sudo", cfg.PrependSudo).
		Strs("exclude", cfg.ExcludePatterns).
		Str("config", *configPath).
		Msg("Starting smartctl exporter")

	smartctlOpts := smartctl.Options{
		Path:        cfg.Smartctl.Path,
		PrependSudo: cfg.PrependSudo,
		SudoPath:    cfg.Smartctl.SudoPath,
		PowerMode:   cfg.Smartctl.PowerMode,
	}
	for _, w := range smartctl.Preflight(smartctlOpts) {
		log.Warn().Msg(w)
	}

	engine := rules.DefaultEngine()
	log.Info().Strs("matchers", engine.Matchers()).Msg("Rule engine ready")

	exp := exporter.New(
		blockdev.NewEnumerator(command.ExecRunner{Timeout: cfg.Lsblk.Timeout}, cfg.Lsblk.Path),
		smartctl.NewClient(command.ExecRunner{Timeout: cfg.Smartctl.Timeout}, smartctlOpts),
		engine,
		blockdev.NewFilter(compiled),
	)

	svc := service.NewService(func(ctx context.Context) error {
		return run(ctx, cfg, exp, *configPath, overlay)
	})

	if err := svc.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("Exporter exited with error")
		logger.Close()
		os.Exit(1)
	}

	log.Info().Msg("smartctl exporter stopped")
}

// loadConfig builds the effective configuration: defaults, then the
// optional file, then command-line flags.
func loadConfig(path string, overlay *config.Config) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg.Merge(overlay)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// fail reports a startup error and exits. When a log file is configured the
// error is also written next to it.
func fail(cfg *config.Config, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
	if cfg != nil && cfg.Logging.FilePath != "" {
		_, _ = service.WriteStartupError(filepath.Dir(cfg.Logging.FilePath), programName, err)
	}
	os.Exit(1)
}

func run(ctx context.Context, cfg *config.Config, exp *exporter.Exporter, configPath string, overlay *config.Config) error {
	if configPath != "" {
		stop := setupWatcher(cfg, configPath, overlay)
		defer stop()
	}

	srv := server.New(cfg.ListenAddr(), exp.Handler())
	return srv.Run(ctx)
}

// setupWatcher reloads logging settings when the config file changes.
// Other settings take effect on restart. Returns a cleanup function.
func setupWatcher(current *config.Config, path string, overlay *config.Config) func() {
	log := logger.WithComponent("main")
	var mu sync.Mutex

	watcher, err := config.NewConfigWatcher(path, func(next *config.Config) {
		mu.Lock()
		defer mu.Unlock()

		log := logger.WithComponent("main")
		next.Merge(overlay)
		if err := next.Logging.Validate(); err != nil {
			log.Error().Err(err).Msg("Ignoring invalid logging configuration")
			return
		}

		log.Info().Msg("Applying logging configuration changes")
		if err := logger.Init(next.LoggerConfig()); err != nil {
			log.Error().Err(err).Msg("Failed to update logging configuration")
			return
		}
		log = logger.WithComponent("main")

		if strings.Join(next.ExcludePatterns, "\x00") != strings.Join(current.ExcludePatterns, "\x00") {
			log.Warn().
				Strs("exclude", next.ExcludePatterns).
				Msg("Exclusion patterns changed, restart required to apply")
		}
		if next.ListenAddr() != current.ListenAddr() {
			log.Warn().Str("listen", next.ListenAddr()).Msg("Listen address changed, restart required to apply")
		}
		log.Info().Str("level", next.LogLevel()).Msg("Logging configuration updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher, hot reload disabled")
		return func() {}
	}
	if err := watcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start config watcher")
		watcher.Stop()
		return func() {}
	}

	return func() {
		log := logger.WithComponent("main")
		log.Info().Msg("Stopping config watcher")
		if err := watcher.Stop(); err != nil {
			log.Error().Err(err).Msg("Error stopping config watcher")
		}
	}
}
