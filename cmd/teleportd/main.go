package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
	"github.com/teleport-bridge/teleportd/internal/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "teleportd"
	app.Usage = "cross-chain token bridge ledger and oracle daemon"
	app.Flags = config.Flags
	app.Action = start
	app.Commands = commands

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func start(c *cli.Context) error {
	cfg, err := config.LoadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}
	log.Debugf("config: %s", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := cfg.LedgerService(); err != nil {
		return fmt.Errorf("failed to start ledger: %s", err)
	}
	defer func() {
		// nolint:all
		cfg.RepoManager().Close()
	}()

	var scheduler *gocron.Scheduler
	if guard := cfg.ResourceGuard(); guard != nil {
		scheduler = gocron.NewScheduler(time.UTC)
		interval := time.Duration(cfg.LenderCheckInterval) * time.Second
		if err := guard.Schedule(scheduler, interval); err != nil {
			return fmt.Errorf("failed to schedule resource guard: %s", err)
		}
		scheduler.StartAsync()
		defer scheduler.Stop()
	}

	if cfg.OracleEnabled() {
		watchers, err := cfg.ChainWatchers()
		if err != nil {
			return fmt.Errorf("failed to start chain watchers: %s", err)
		}
		for _, watcher := range watchers {
			go watcher.Start(ctx)
		}

		ledgerWatcher, err := cfg.LedgerWatcher()
		if err != nil {
			return fmt.Errorf("failed to start ledger watcher: %s", err)
		}
		go ledgerWatcher.Start(ctx)
	} else {
		log.Info("no oracle key configured, running ledger only")
	}

	if err := cfg.Notifier().NotifyStatus(ctx, "teleportd started"); err != nil {
		log.WithError(err).Warn("failed to send startup notification")
	}
	log.Info("teleportd started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down...")
	return nil
}
