package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and print the effective values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "listen:  %s\n", cfg.ListenAddr())
		fmt.Fprintf(out, "storage: %s\n", cfg.Storage.Backend)
		for id, ac := range cfg.AxisConfigs() {
			fmt.Fprintf(out, "axis %s: speed=%g accel=%g jerk=%g travel=%g\n", id,
				ac.Defaults.ReferenceSpeed, ac.Defaults.ReferenceAccelDecel, ac.Defaults.ReferenceJerk, ac.Travel)
		}
		fmt.Fprintln(out, "configuration OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addOverrideFlags(validateCmd)
}
