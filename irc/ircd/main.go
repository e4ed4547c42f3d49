//go:build linux

// Command ircd runs a single-server IRC network.
//
//	ircd <port> <password>
//
// Settings not given on the command line come from an optional config file
// (--config), IRCD_* environment variables and a .env file in the working
// directory.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/presbrey/ircserv/irc"
	"github.com/presbrey/ircserv/irc/config"
	"github.com/presbrey/ircserv/ircprom"
	"github.com/presbrey/ircserv/logging"
	"github.com/presbrey/ircserv/mplex"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configSource string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   "ircd <port> <password>",
		Short: "Single-server IRC daemon",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return err
			}
			if _, err := strconv.ParseUint(args[0], 10, 16); err != nil {
				return fmt.Errorf("invalid port %q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configSource)
			if err != nil {
				return err
			}

			port, _ := strconv.ParseUint(args[0], 10, 16)
			cfg.Server.Port = int(port)
			cfg.Server.Password = args[1]
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
				return err
			}

			cmd.SilenceUsage = true
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configSource, "config", "c", "", "config file path or URL (yaml, toml or json)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	return cmd
}

// run serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logrus.StandardLogger().WithField("component", "ircd")

	collector := ircprom.NewCollector()
	reactor, err := mplex.New(cfg.Server.Port,
		mplex.WithHost(cfg.Server.Host),
		mplex.WithReadSize(cfg.Network.ReadSize),
		mplex.WithMaxEvents(cfg.Network.MaxEvents),
		mplex.WithPollTimeout(cfg.PollTimeout()),
		mplex.WithSendQueueLimit(cfg.Network.SendQueueLimit),
		mplex.WithObserver(collector),
	)
	if err != nil {
		return err
	}

	engine, err := irc.NewServer(reactor, cfg)
	if err != nil {
		return err
	}
	collector.Attach(engine.Events)
	reactor.SetEventHandler(engine)

	if err := reactor.Activate(); err != nil {
		log.WithError(err).Error("Failed to start server")
		return err
	}
	defer reactor.Deactivate()

	addr, err := reactor.Addr()
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"addr": addr.String(),
		"name": engine.Name(),
	}).Info("Server listening")

	if cfg.Metrics.Enabled {
		metricsAddr := net.JoinHostPort(cfg.Metrics.Host, strconv.Itoa(cfg.Metrics.Port))
		go func() {
			if err := collector.Serve(ctx, metricsAddr); err != nil {
				log.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	started := time.Now()
	lastBeat := started
	interval := cfg.HeartbeatInterval()

	for ctx.Err() == nil {
		if err := reactor.Poll(); err != nil {
			log.WithError(err).Error("Poll failed")
			return err
		}

		if interval > 0 && time.Since(lastBeat) >= interval {
			lastBeat = time.Now()
			log.Infof("Alive - Uptime: %ds", int(time.Since(started).Seconds()))
		}
	}

	log.WithField("clients", reactor.ConnectedClientsCount()).Info("Shutting down")
	return nil
}
