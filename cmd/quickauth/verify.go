package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PaulFidika/quickauth/core"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a Quick Auth token and print its payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if settings.Domain == "" {
			return errors.New("a domain is required (--domain or QUICKAUTH_DOMAIN)")
		}
		rt, err := newRuntime(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer rt.Close()

		d, err := rt.Dispatcher(cmd.Context())
		if err != nil {
			return err
		}
		payload, err := d.Verify(cmd.Context(), settings.Issuer(), core.VerifyOptions{Token: args[0], Domain: settings.Domain})
		if err != nil {
			return fmt.Errorf("%s: %w", core.KindOf(err), err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
