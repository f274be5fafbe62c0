package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okume/actguard/internal/confirm"
	"github.com/okume/actguard/internal/dispatch"
	"github.com/okume/actguard/internal/model"
)

var (
	dispatchPayload string
	dispatchLevel   string
	dispatchTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(dispatchCmd)
	dispatchCmd.Flags().StringVarP(&dispatchPayload, "payload", "p", "", "Action payload as JSON")
	dispatchCmd.Flags().StringVar(&dispatchLevel, "level", "", "Automation level override (manual/assisted/automated)")
	dispatchCmd.Flags().DurationVar(&dispatchTimeout, "timeout", 5*time.Minute, "Overall deadline including any confirmation wait")
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <action>",
	Short: "Route one action through the gate",
	Long: `Dispatches a tagged action request and prints the structured response.
Assisted actions prompt on this terminal; declining cancels the action.

Examples:
  actguard dispatch submit-form --payload '{"form":"login"}'
  actguard dispatch solve-captcha --level assisted
  actguard dispatch change-mode --payload '{"mode":"advanced","justification":"dev session"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runDispatch,
}

func runDispatch(cmd *cobra.Command, args []string) error {
	payload := map[string]any{}
	if dispatchPayload != "" {
		if err := json.Unmarshal([]byte(dispatchPayload), &payload); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
	}
	if dispatchLevel != "" {
		payload["level"] = dispatchLevel
	}

	rt, err := openRuntime(dispatch.Config{
		Confirmer: &confirm.Terminal{In: os.Stdin, Out: os.Stderr},
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resp := rt.dispatcher.Dispatch(ctx, model.Request{
		Type:    model.ActionType(args[0]),
		Payload: payload,
	})

	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
	if !resp.Success {
		os.Exit(1)
	}
	return nil
}
