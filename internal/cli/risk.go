package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okume/actguard/internal/dispatch"
)

func init() {
	rootCmd.AddCommand(riskCmd)
}

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Report the risk of the current configuration",
	Long:  "Recomputes the risk score from the live configuration and prints the\nscore, level, and the settings contributing to it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(dispatch.Config{})
		if err != nil {
			return err
		}
		defer rt.Close()

		out, _ := json.MarshalIndent(rt.dispatcher.Risk(), "", "  ")
		fmt.Println(string(out))
		return nil
	},
}
