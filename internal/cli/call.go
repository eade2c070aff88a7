package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alovak/farecard/internal/client"
)

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().String("addr", "127.0.0.1:5050", "Address of the fare-card server")
	callCmd.Flags().Duration("timeout", client.DefaultTimeout, "Give up after this long")
	callCmd.Flags().Int("buffer-size", client.DefaultBufferSize, "Largest response to read")
}

var callCmd = &cobra.Command{
	Use:   "call VERB [ARGS...]",
	Short: "Send one request to a fare-card server",
	Long: `Send one protocol request and print the answer. Examples:

  farecard call create_card
  farecard call fill_wallet 1 100
  farecard call pay_for_ride 1 north
  farecard call check_card_status 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

func runCall(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	bufferSize, _ := cmd.Flags().GetInt("buffer-size")

	c := client.New(addr, timeout, bufferSize)
	fmt.Fprintln(cmd.OutOrStdout(), c.Call(cmd.Context(), strings.Join(args, " ")))
	return nil
}

