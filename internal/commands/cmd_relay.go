package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/huddle/internal/printer"
	"github.com/hay-kot/huddle/internal/relay"
)

const relayShutdownTimeout = 5 * time.Second

type RelayCmd struct {
	flags  *Flags
	listen string
}

// NewRelayCmd creates a new relay command.
func NewRelayCmd(flags *Flags) *RelayCmd {
	return &RelayCmd{flags: flags}
}

// Register adds the relay command to the application.
func (cmd *RelayCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "relay",
		Usage:     "Run the session update relay",
		UsageText: "huddle relay [--listen <addr>]",
		Description: `Runs the websocket relay that fans "session updated" signals out to every
open view of a session. Views connect to relay.url; the relay binds relay.listen.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "listen",
				Aliases:     []string{"l"},
				Usage:       "address to bind (defaults to relay.listen)",
				Destination: &cmd.listen,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RelayCmd) run(ctx context.Context, _ *cli.Command) error {
	p := printer.Ctx(ctx)

	addr := cmd.listen
	if addr == "" {
		addr = cmd.flags.Config.Relay.Listen
	}

	hub := relay.NewHub(log.With().Str("component", "hub").Logger())

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	p.Success("Relay listening", "ws://"+addr+"/ws")
	log.Info().Str("addr", addr).Msg("relay started")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), relayShutdownTimeout)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown relay: %w", err)
	}

	log.Info().Msg("relay stopped")
	return nil
}
