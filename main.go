package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/codecbridge/cmd"
	"github.com/smazurov/codecbridge/internal/api"
	"github.com/smazurov/codecbridge/internal/codec"
	"github.com/smazurov/codecbridge/internal/config"
	"github.com/smazurov/codecbridge/internal/events"
	"github.com/smazurov/codecbridge/internal/logging"
	"github.com/smazurov/codecbridge/internal/metrics"
	"github.com/smazurov/codecbridge/internal/version"
	"github.com/smazurov/codecbridge/pkg/videocore/mmal"
	"github.com/smazurov/codecbridge/pkg/videocore/mmal/mmaltest"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8092" toml:"server.port" env:"SERVER_PORT"`

	// Codec settings
	Backend             string `help:"Accelerator backend (sim)" default:"sim" toml:"codec.backend" env:"CODEC_BACKEND"`
	SimLoopback         bool   `help:"Echo payloads through the simulated accelerator" default:"true" toml:"codec.sim_loopback" env:"CODEC_SIM_LOOPBACK"`
	DrainTimeoutMs      int    `help:"Port drain timeout in milliseconds" default:"2000" toml:"codec.drain_timeout_ms" env:"CODEC_DRAIN_TIMEOUT_MS"`
	DisableBayer        bool   `help:"Hide raw sensor formats from the catalog" default:"false" toml:"codec.disable_bayer" env:"CODEC_DISABLE_BAYER"`
	AdvancedDeinterlace bool   `help:"Use the high quality deinterlace algorithm for narrow sources" default:"true" toml:"codec.advanced_deinterlace" env:"CODEC_ADVANCED_DEINTERLACE"`
	FieldOverride       string `help:"Force a field order on submitted buffers (any, none, interlaced, interlaced-tb, interlaced-bt)" default:"any" toml:"codec.field_override" env:"CODEC_FIELD_OVERRIDE"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCodec  string `help:"Codec session logging level" default:"info" toml:"logging.codec" env:"LOGGING_CODEC"`
	LoggingMMAL   string `help:"Accelerator transport logging level" default:"info" toml:"logging.mmal" env:"LOGGING_MMAL"`
	LoggingAPI    string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// openInstance creates the accelerator backend named in the options.
func openInstance(opts *Options) (mmal.Instance, error) {
	switch opts.Backend {
	case "sim":
		inst := mmaltest.New()
		inst.Loopback = opts.SimLoopback
		return inst, nil
	default:
		return nil, errors.New("unknown backend " + opts.Backend)
	}
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"codec": opts.LoggingCodec,
				"mmal":  opts.LoggingMMAL,
				"api":   opts.LoggingAPI,
			},
		})
		logger := logging.GetLogger("main")

		fieldOverride, err := codec.ParseFieldOrder(opts.FieldOverride)
		if err != nil {
			logger.Error("Invalid field override", "value", opts.FieldOverride, "error", err)
			os.Exit(1)
		}

		instance, err := openInstance(opts)
		if err != nil {
			logger.Error("Failed to open accelerator backend", "backend", opts.Backend, "error", err)
			os.Exit(1)
		}

		// Create event bus for in-process event handling
		eventBus := events.New()

		manager := codec.NewManager(&codec.ManagerOptions{
			Instance: instance,
			Config: codec.Config{
				DrainTimeout:        time.Duration(opts.DrainTimeoutMs) * time.Millisecond,
				DisableBayer:        opts.DisableBayer,
				AdvancedDeinterlace: opts.AdvancedDeinterlace,
				FieldOverride:       fieldOverride,
			},
			Bus: eventBus,
		})

		server := api.NewServer(&api.Options{
			AuthUsername:   opts.AuthUsername,
			AuthPassword:   opts.AuthPassword,
			Manager:        manager,
			Bus:            eventBus,
			MetricsHandler: metrics.Handler(),
		})

		// Reapply logging levels when the config file changes.
		loggingLoader := func(path string) (logging.Config, error) {
			return config.LoadLoggingConfig(path), nil
		}
		watcher := config.NewConfigWatcher(
			opts.Config,
			loggingLoader,
			logger,
			config.WithDebounce[logging.Config](1500*time.Millisecond),
		)
		watcher.OnReload(func(cfg logging.Config) {
			logger.Info("Reloading logging configuration")
			logging.Initialize(cfg)
		})

		hooks.OnStart(func() {
			if startErr := watcher.Start(); startErr != nil {
				logger.Warn("Failed to start config watcher, hot-reload disabled", "error", startErr)
			}

			logger.Info("Starting HTTP server", "product", version.Product,
				"version", version.String(), "port", opts.Port, "backend", opts.Backend)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Sessions hold accelerator components; tear them down before
			// the backend goes away.
			manager.CloseAll()
			_ = watcher.Stop()

			if closer, ok := instance.(interface{ Close() error }); ok {
				if closeErr := closer.Close(); closeErr != nil {
					logger.Error("Error closing accelerator backend", "error", closeErr)
				}
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateFormatsCmd())
	cli.Run()
}
