package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facebox/pkg/camera"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the camera devices each driver would try",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDevices(cfg.Camera)
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func listDevices(base camera.Config) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tORDER\tDEVICE")
	fmt.Fprintln(w, "-------\t-----\t------")

	for _, name := range camera.Drivers() {
		c := base
		c.Backend = name
		devices, err := camera.Discover(c)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t(%v)\n", name, err)
			continue
		}
		if len(devices) == 0 {
			fmt.Fprintf(w, "%s\t-\t(none found)\n", name)
			continue
		}
		for i, dev := range devices {
			fmt.Fprintf(w, "%s\t%d\t%s\n", name, i+1, dev)
		}
	}
	return w.Flush()
}
