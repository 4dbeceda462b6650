package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generates manpages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		manPage, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return fmt.Errorf("unable to generate man page: %w", err)
		}

		manPage = manPage.WithSection("Headphones", "narrator reads headphone presence from the file named by\n"+
			"device.jack_path. A file containing 0 means unplugged, any other\n"+
			"content means plugged in. Without a jack file the platform is\n"+
			"probed once at start.")
		fmt.Println(manPage.Build(roff.NewDocument()))
		return nil
	},
}
