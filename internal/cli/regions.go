package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alovak/farecard/transit"
)

func init() {
	rootCmd.AddCommand(regionsCmd)
	regionsCmd.Flags().StringP("config", "c", "", "Path to a TOML config file")
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Print the fare table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		config, err := transit.LoadConfig(path)
		if err != nil {
			return err
		}
		if err := config.Validate(); err != nil {
			return err
		}

		table := config.FareTable()
		fares := table.Fares()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "REGION\tFARE")
		for _, name := range table.Regions() {
			fmt.Fprintf(w, "%s\t%d\n", name, fares[name])
		}
		return w.Flush()
	},
}
