package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/bridge"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/reminder"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the WebSocket bridge and run reminders",
		Long:  "Serves the store to the UI process over a loopback WebSocket and creates due-date reminders until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, opts, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (overrides bridge.addr)")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts *rootOptions, addr string) error {
	cfg, h, err := opts.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Printf("closing store: %v", err)
		}
	}()

	s, err := h.Store()
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	if !s.Durable() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: running on an in-memory store; changes will not be saved")
	}
	if addr == "" {
		addr = cfg.Bridge.Addr
	}

	srv := bridge.NewServer(bridge.New(s))

	if cfg.Reminders.Enabled {
		interval := time.Duration(cfg.Reminders.IntervalSec) * time.Second
		sched := reminder.New(s, interval, func(n model.Notification) {
			srv.Broadcast("notification", n)
		})
		sched.Start(ctx)
		defer sched.Stop()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on ws://%s/bridge\n", cfg.DatabasePath(), addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("serving bridge: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Shut down")
	return nil
}
