package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/bridge"
)

func newCallCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <op> [payload]",
		Short: "Run one bridge operation and print its JSON result",
		Long:  "Dispatches a single bridge operation against the store. The payload is a JSON document; pass - to read it from stdin.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload json.RawMessage
			if len(args) == 2 {
				if args[1] == "-" {
					data, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("reading payload: %w", err)
					}
					payload = data
				} else {
					payload = json.RawMessage(args[1])
				}
			}
			return runCall(cmd, opts, args[0], payload)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the available operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, op := range bridge.New(nil).Operations() {
				fmt.Fprintln(cmd.OutOrStdout(), op)
			}
			return nil
		},
	})
	return cmd
}

func runCall(cmd *cobra.Command, opts *rootOptions, op string, payload json.RawMessage) error {
	_, h, err := opts.openStore()
	if err != nil {
		return err
	}
	defer h.Close()

	s, err := h.Store()
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	result, err := bridge.New(s).Handle(cmd.Context(), op, payload)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}
