package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTZCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tz",
		Short: "Validate and encode time zone designators",
	}

	cmd.AddCommand(newTZValidateCmd(root))
	cmd.AddCommand(newTZEncodeCmd(root))

	return cmd
}

func newTZValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate DESIGNATOR...",
		Short: "Check designators against the configured region policy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			codec := cfg.Codec()

			invalid := 0
			for _, arg := range args {
				d, err := codec.Parse(arg)
				if err != nil {
					invalid++
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tinvalid\n", arg)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tvalid\t%s\n", arg, d.Kind)
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d designators are invalid", invalid, len(args))
			}
			return nil
		},
	}
}

func newTZEncodeCmd(root *rootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "encode DESIGNATOR",
		Short: "Print the dateTime string sent for an instant in a time zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			t := time.Now()
			if at != "" {
				t, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}

			encoded, err := cfg.Codec().Encode(t, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Instant to encode (RFC 3339), defaults to now")

	return cmd
}
