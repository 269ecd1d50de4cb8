package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/multisocket/duplclient/internal/responder"
	"github.com/multisocket/duplclient/options"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRespondCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "respond <address>",
		Short: "Answer every request with unexpected(request), for trying clients out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ovs, err := optionValues(viper.GetStringSlice(optionKey))
			if err != nil {
				return err
			}
			r, err := responder.Listen(args[0], nil, options.NewOptionsWithValues(ovs))
			if err != nil {
				return fmt.Errorf("listen on %s: %w", args[0], err)
			}
			defer r.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "responding on %s\n", r.Address())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
}
