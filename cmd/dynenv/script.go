// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stacklok/dynenv/inject"
)

func newScriptCmd(a *app) *cobra.Command {
	var (
		tag   bool
		id    string
		nonce string
	)

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Print the script that injects the client variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inj, err := a.injector(inject.WithID(id), inject.WithNonce(nonce))
			if err != nil {
				return err
			}
			p, err := a.errorPolicy()
			if err != nil {
				return err
			}
			client, err := a.client(p)
			if err != nil {
				return err
			}

			var out string
			if tag {
				out, err = inj.Tag(client.Raw())
			} else {
				out, err = inj.Script(client.Raw())
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&tag, "tag", false, "wrap the script in a <script> element")
	cmd.Flags().StringVar(&id, "id", inject.DefaultScriptID, "id attribute of the <script> element")
	cmd.Flags().StringVar(&nonce, "nonce", "", "CSP nonce of the <script> element")
	return cmd
}

func (a *app) injector(opts ...inject.Option) (*inject.Injector, error) {
	base := []inject.Option{
		inject.WithVarName(a.settings.VarName),
		inject.WithMode(a.mode()),
		inject.WithLogger(a.logger),
		inject.OnMissingVar(func(key string) {
			a.logger.Warn("client variable is not set", "key", key)
		}),
	}
	return inject.New(append(base, opts...)...)
}
