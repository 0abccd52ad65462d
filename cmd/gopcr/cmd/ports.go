package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/roffe/gopcr"
	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := gopcr.ListPorts()
		if err != nil {
			return err
		}
		ftdi := color.New(color.FgGreen).SprintFunc()
		for _, p := range ports {
			if p.IsFTDI() {
				fmt.Println(ftdi(p.String()), "(FTDI)")
				continue
			}
			fmt.Println(p)
		}
		return nil
	},
}

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List available adapters",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, a := range gopcr.ListAdapters() {
			fmt.Println(a.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(portsCmd, adaptersCmd)
}
