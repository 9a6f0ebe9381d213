package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDestinationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "destinations",
		Short: "List existing destinations under the base directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.openStore(); err != nil {
				return err
			}
			names, err := a.store.ListDestinations()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
