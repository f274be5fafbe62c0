package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okume/actguard/internal/dispatch"
	"github.com/okume/actguard/internal/model"
	"github.com/okume/actguard/internal/settings"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and update the gating configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration with its risk report",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(dispatch.Config{})
		if err != nil {
			return err
		}
		defer rt.Close()

		report := rt.dispatcher.Risk()
		out, _ := json.MarshalIndent(map[string]any{
			"mode":     rt.dispatcher.Mode(),
			"settings": rt.dispatcher.Settings().ToMap(),
			"risk":     report,
		}, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Update one setting",
	Long:  "Applies a configuration update through the gate and prints the recomputed\nrisk. Unknown keys and out-of-domain values are rejected.",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys and their value domains",
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range settings.Keys() {
			domain, _ := settings.Domain(k)
			fmt.Printf("%-22s %s\n", k, strings.Join(domain, "|"))
		}
	},
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(dispatch.Config{})
	if err != nil {
		return err
	}
	defer rt.Close()

	resp := rt.dispatcher.Dispatch(context.Background(), model.Request{
		Type:    model.ActionUpdateConfig,
		Payload: map[string]any{"key": args[0], "value": args[1]},
	})
	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
	if !resp.Success {
		os.Exit(1)
	}
	return nil
}
