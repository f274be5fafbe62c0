package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okume/actguard/internal/dispatch"
	"github.com/okume/actguard/internal/model"
)

var checkLevel string

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkLevel, "level", "", "Automation level override (manual/assisted/automated)")
}

var checkCmd = &cobra.Command{
	Use:   "check <action>",
	Short: "Predict the gate decision without acting",
	Long:  "Dry-run: reports the decision the gate would make for an action at the\ncurrent mode and configuration. No prompt, no effect, no audit event.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	t, ok := model.ParseActionType(args[0])
	if !ok {
		return fmt.Errorf("unknown action type %q", args[0])
	}

	rt, err := openRuntime(dispatch.Config{})
	if err != nil {
		return err
	}
	defer rt.Close()

	res := rt.dispatcher.Check(t, checkLevel)
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	return nil
}
