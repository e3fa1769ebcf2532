// Valet - dispatch orchestration engine for personal assistant messaging.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/calendar"
	"github.com/valethq/valet/internal/category"
	"github.com/valethq/valet/internal/channels"
	slackchannel "github.com/valethq/valet/internal/channels/slack"
	"github.com/valethq/valet/internal/classify"
	"github.com/valethq/valet/internal/config"
	"github.com/valethq/valet/internal/dispatch"
	"github.com/valethq/valet/internal/integration"
	"github.com/valethq/valet/internal/logging"
	"github.com/valethq/valet/internal/mail"
	"github.com/valethq/valet/internal/scheduler"
	"github.com/valethq/valet/internal/session"
	"github.com/valethq/valet/internal/travel"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Valet v%s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithConfig(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logger.Close()
	logger.Info("Starting Valet", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	// Conversation service client.
	svc := assistant.NewClient(assistant.ClientOptions{
		BaseURL: cfg.Assistant.BaseURL,
		APIKey:  cfg.Assistant.APIKey,
		Timeout: cfg.Assistant.GetHTTPTimeout(),
	})

	// Session store.
	store, err := session.NewSQLiteStore(cfg.Session.DBPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	// Per-category executors.
	registry := integration.NewRegistry()
	log := logger.Logger

	calSvc := calendar.NewClient(cfg.Calendar.BaseURL, cfg.Calendar.GetTimeout())
	registry.Register(category.Schedule, integration.NewCalendarExecutor(calSvc, integration.CalendarOptions{
		Timezone:     cfg.Scheduling.Timezone,
		WorkdayStart: cfg.Scheduling.WorkdayStart,
		WorkdayEnd:   cfg.Scheduling.WorkdayEnd,
	}, log.With("executor", "calendar")))

	travelSvc := travel.NewClient(cfg.Travel.BaseURL, cfg.Travel.APIKey)
	registry.Register(category.Travel, integration.NewTravelExecutor(travelSvc, log.With("executor", "travel")))

	mailSvc := mail.NewClient(cfg.Email.BaseURL)
	registry.Register(category.Email, integration.NewEmailExecutor(mailSvc, log.With("executor", "email")))
	registry.Register(category.ScheduleEmail, integration.NewScheduleEmailExecutor(mailSvc, log.With("executor", "scheduleemail")))

	router := integration.NewRouter(registry, log.With("component", "router"))

	classifier := classify.New(svc, cfg.Assistant.Model,
		cfg.Assistant.GetPollInterval(), cfg.Assistant.GetRunTimeout(),
		log.With("component", "classifier"))

	dispatcher := dispatch.New(svc, classifier, store, registry, router,
		cfg.Assistant.Model, cfg.Assistant.GetPollInterval(), cfg.Assistant.GetRunTimeout(),
		log.With("component", "dispatch"))

	// Session sweep.
	sweeper := scheduler.New(store, svc, cfg.Session.GetTTL(), cfg.Session.SweepSchedule,
		log.With("component", "sweeper"))
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer sweeper.Stop()

	// Metrics endpoint.
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Info("Metrics listening", "addr", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logger.Error("Metrics server error", "error", err)
			}
		}()
		defer metricsSrv.Close()
	}

	// Messaging channels.
	chRouter := channels.NewRouter()
	if cfg.Channels.Slack.Enabled {
		chRouter.Register(slackchannel.New(cfg.Channels.Slack, log))
	}
	if err := chRouter.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	defer chRouter.StopAll()

	logger.Info("Valet ready")

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case msg, ok := <-chRouter.Incoming():
			if !ok {
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(msg *channels.InboundMessage) {
				defer wg.Done()
				handleMessage(ctx, dispatcher, chRouter, msg, logger)
			}(msg)
		}
	}
}

func handleMessage(ctx context.Context, d *dispatch.Dispatcher, router *channels.Router, msg *channels.InboundMessage, logger *logging.Logger) {
	res := d.Dispatch(ctx, msg.UserID, msg.ChannelName, msg.Text)

	reply := res.Response
	if res.Err != nil {
		logger.Error("Dispatch failed", "user", msg.UserID, "error", res.Err)
		reply = "Sorry, something went wrong handling that message. Please try again."
	}

	if err := router.Reply(msg.ChannelName, msg.ChannelID, reply); err != nil {
		logger.Error("Reply failed", "channel", msg.ChannelName, "error", err)
	}
}
