package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okume/actguard/internal/approval"
)

func init() {
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(denyCmd)
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List confirmation requests waiting for a decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := approval.NewStore(approval.DefaultDir())
		if err != nil {
			return err
		}
		_ = store.Cleanup()

		items, err := store.List()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("no pending requests")
			return nil
		}
		for _, p := range items {
			age := time.Since(p.CreatedAt).Round(time.Second)
			fmt.Printf("%-30s %-10s %-8s %s\n", p.Key, p.Status, age, p.Message)
		}
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <key>",
	Short: "Approve a pending confirmation request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := approval.NewStore(approval.DefaultDir())
		if err != nil {
			return err
		}
		if err := store.Approve(args[0]); err != nil {
			return err
		}
		fmt.Printf("approved: %s\n", args[0])
		return nil
	},
}

var denyCmd = &cobra.Command{
	Use:   "deny <key>",
	Short: "Deny a pending confirmation request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := approval.NewStore(approval.DefaultDir())
		if err != nil {
			return err
		}
		if err := store.Deny(args[0]); err != nil {
			return err
		}
		fmt.Printf("denied: %s\n", args[0])
		return nil
	},
}
