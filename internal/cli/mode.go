package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okume/actguard/internal/dispatch"
	"github.com/okume/actguard/internal/model"
)

var modeJustification string

func init() {
	rootCmd.AddCommand(modeCmd)
	modeCmd.AddCommand(modeSetCmd)
	modeSetCmd.Flags().StringVarP(&modeJustification, "justification", "j", "", "Why the transition is needed (required)")
}

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Show or change the privilege mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(dispatch.Config{})
		if err != nil {
			return err
		}
		defer rt.Close()

		fmt.Println(rt.dispatcher.Mode())
		return nil
	},
}

var modeSetCmd = &cobra.Command{
	Use:   "set <standard|advanced|research>",
	Short: "Transition to another mode",
	Long:  "Every transition requires a justification and is written to the audit log\nwith the old and new mode.",
	Args:  cobra.ExactArgs(1),
	RunE:  runModeSet,
}

func runModeSet(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(dispatch.Config{})
	if err != nil {
		return err
	}
	defer rt.Close()

	resp := rt.dispatcher.Dispatch(context.Background(), model.Request{
		Type: model.ActionChangeMode,
		Payload: map[string]any{
			"mode":          args[0],
			"justification": modeJustification,
		},
	})
	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
	if !resp.Success {
		os.Exit(1)
	}
	return nil
}
