package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var nonceCmd = &cobra.Command{
	Use:   "nonce",
	Short: "Issue or consume nonces in the configured store",
	Long: `Issue or consume nonces in the configured store. Without a Redis or
Postgres URL the store lives in this process only, which is useful for trying
things out and little else.`,
}

var nonceIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Create a fresh nonce",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer rt.Close()

		nonces, err := rt.Nonces()
		if err != nil {
			return err
		}
		id, expiresAt, err := nonces.Generate(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\texpires %s\n", id, expiresAt.UTC().Format(time.RFC3339))
		return nil
	},
}

var nonceConsumeCmd = &cobra.Command{
	Use:   "consume <nonce>",
	Short: "Spend a nonce; exits non-zero if it was not active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer rt.Close()

		nonces, err := rt.Nonces()
		if err != nil {
			return err
		}
		ok, err := nonces.Consume(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("nonce %s is unknown, expired, or already used", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), "consumed")
		return nil
	},
}

func init() {
	nonceCmd.AddCommand(nonceIssueCmd, nonceConsumeCmd)
	rootCmd.AddCommand(nonceCmd)
}
