package cmd

import (
	"fmt"
	"os"

	"github.com/roffe/gopcr"
	"github.com/spf13/cobra"
)

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Power the radio off",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer a.log.Sync()
		return a.withRadio(cmd.Context(), false, func(s *gopcr.Session) error {
			if err := s.PowerOff(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("radio off")
			return nil
		})
	},
}

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Show signal quality",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		powerOn, _ := cmd.Flags().GetBool(flagInit)
		a, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer a.log.Sync()
		return a.withRadio(cmd.Context(), powerOn, func(s *gopcr.Session) error {
			st, err := s.SignalQuality(cmd.Context())
			if err != nil {
				return err
			}
			if id := s.RadioID(); id != "" {
				fmt.Println("radio:", id)
			}
			fmt.Println(st)
			return nil
		})
	},
}

func init() {
	signalCmd.Flags().Bool(flagInit, false, "power on the radio first")
	rootCmd.AddCommand(offCmd, signalCmd)
}
