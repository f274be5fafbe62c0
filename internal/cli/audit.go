package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okume/actguard/internal/audit"
	"github.com/okume/actguard/internal/dispatch"
	"github.com/okume/actguard/internal/model"
)

var (
	tailLines int
	clearYes  bool
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditCmd.AddCommand(auditExportCmd)
	auditCmd.AddCommand(auditClearCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
	auditClearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm destruction of the audit history")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying, inspecting, exporting, and clearing the\nhash-chained audit log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify hash chain integrity of an audit log",
	Long:  "Walks the JSONL audit log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail [path]",
	Short: "Show recent audit log entries",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditTail,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the audit log as a portable sequence",
	Long:  "Exports the full event sequence with a format marker for external\nverification. The export itself is a gated action and appears in the log.",
	RunE:  runAuditExport,
}

var auditClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Destroy the audit history and restart the chain",
	Long:  "Truncates the log and resets the chain to the genesis hash. Refuses to\nrun without --yes.",
	RunE:  runAuditClear,
}

func argOrDefault(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return auditPath()
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.Verify(argOrDefault(args))
	if result.Valid {
		fmt.Printf("OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	events, err := audit.Tail(argOrDefault(args), tailLines)
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}
	for _, ev := range events {
		out, _ := json.MarshalIndent(ev, "", "  ")
		fmt.Println(string(out))
	}
	return nil
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(dispatch.Config{})
	if err != nil {
		return err
	}
	defer rt.Close()

	resp := rt.dispatcher.Dispatch(context.Background(), model.Request{Type: model.ActionExportAudit})
	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
	if !resp.Success {
		os.Exit(1)
	}
	return nil
}

func runAuditClear(cmd *cobra.Command, args []string) error {
	if !clearYes {
		return fmt.Errorf("refusing to clear the audit log without --yes")
	}

	log, err := audit.Open(auditPath())
	if err != nil {
		return err
	}
	defer log.Close()

	if err := log.Clear(true); err != nil {
		return err
	}
	fmt.Println("audit log cleared, chain reset to genesis")
	return nil
}
