// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stacklok/dynenv/policy"
	"github.com/stacklok/dynenv/resolve"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate every declared variable and report all failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var failed *resolve.ValidationError
			collect := policy.Callback(func(err error) {
				errors.As(err, &failed)
			})

			client, err := a.client(collect)
			if err != nil {
				return err
			}
			if failed != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), resolve.PrettyMessage(failed.Errors))
				return errReported
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Environment is valid (%d client variables).\n", len(client.Keys()))
			return nil
		},
	}
}
