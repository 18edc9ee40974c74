package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	flag "github.com/spf13/pflag"

	"calbook/internal/app"
	"calbook/internal/config"
	appLog "calbook/internal/log"
	"calbook/internal/metrics"
	"calbook/internal/model"
	"calbook/internal/web"
)

// flagConfig holds CLI overrides applied on top of the config file.
type flagConfig struct {
	configPath string
	year       int
	genType    string
	output     string
	listen     string
	schedule   string
	logLevel   string
	once       bool
}

func main() {
	if err := godotenv.Load(); err != nil {
		appLog.Debug("no .env file loaded", "reason", err.Error())
	}

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	applyFlags(conf, flags)
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("calbook starting", "version", "0.3.0")
	appLog.Info("effective config",
		"year", conf.Year,
		"generation_type", conf.GenerationType,
		"output_dir", conf.OutputDir,
		"timezone", conf.Timezone,
		"sources", len(conf.Events.Sources),
		"holidays", len(conf.Holidays),
		"header", conf.Header.Document,
		"collage_layout", conf.CollageLayout,
		"schedule", conf.Schedule,
		"listen", conf.Listen,
		"once", flags.once,
	)

	m := metrics.New()
	pipeline, err := app.New(conf, m)
	if err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	doc, path, err := pipeline.Run(ctx)
	if err != nil {
		appLog.Error("generation failed", err, "year", conf.Year, "type", conf.GenerationType)
	} else {
		appLog.Info("calendar ready", "path", path, "pages", len(doc.Pages))
	}
	daemon := !flags.once && (conf.Schedule != "" || conf.Listen != "")
	if err != nil && !daemon {
		os.Exit(1)
	}
	if !daemon {
		appLog.Sync()
		return
	}

	var srv *web.Server
	if conf.Listen != "" {
		srv = web.NewServer(conf, m, func(ctx context.Context) (*model.GeneratedDocument, error) {
			d, _, err := pipeline.Run(ctx)
			return d, err
		})
		if doc != nil {
			srv.SetDocument(doc)
		}
	}

	if conf.Schedule != "" {
		c := cron.New()
		_, err := c.AddFunc(conf.Schedule, func() {
			d, _, err := pipeline.Run(ctx)
			if err != nil {
				appLog.Error("scheduled generation failed", err, "schedule", conf.Schedule)
				return
			}
			if srv != nil {
				srv.SetDocument(d)
			}
		})
		if err != nil {
			appLog.Error("invalid schedule", err, "schedule", conf.Schedule)
			os.Exit(1)
		}
		c.Start()
		appLog.Info("scheduler started", "schedule", conf.Schedule)
		defer func() {
			<-c.Stop().Done()
		}()
	}

	if srv != nil {
		if err := web.StartServer(ctx, srv, conf.Listen); err != nil {
			appLog.Error("HTTP server failed", err, "listen", conf.Listen)
			cancel()
		}
	} else {
		<-ctx.Done()
	}

	appLog.Info("calbook exiting")
	appLog.Sync()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	defaultConfig := os.Getenv("CALBOOK_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "./calbook.yaml"
	}

	flag.StringVarP(&cfg.configPath, "config", "c", defaultConfig, "Path to config file (env CALBOOK_CONFIG)")
	flag.IntVarP(&cfg.year, "year", "y", 0, "Calendar year (overrides config if set)")
	flag.StringVarP(&cfg.genType, "type", "t", "", "Generation type: calendar_only, with_headers or combined")
	flag.StringVarP(&cfg.output, "output", "o", "", "Output directory (overrides config if set)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.schedule, "schedule", "", "Cron expression for periodic regeneration")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info or error")
	flag.BoolVar(&cfg.once, "once", false, "Generate once and exit, ignoring schedule and listen")

	flag.Parse()

	return cfg
}

func applyFlags(conf *config.Config, f flagConfig) {
	if f.year > 0 {
		conf.Year = f.year
	}
	if f.genType != "" {
		conf.GenerationType = f.genType
	}
	if f.output != "" {
		conf.OutputDir = f.output
	}
	if f.listen != "" {
		conf.Listen = f.listen
	}
	if f.schedule != "" {
		conf.Schedule = f.schedule
	}
	if f.logLevel != "" {
		conf.LogLevel = f.logLevel
	}
	conf.Normalize()
}
