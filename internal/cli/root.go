// Package cli implements the actguard command tree. Commands that touch the
// control plane build a dispatcher from the shared path flags; read-only
// commands (audit verify, tail) work on files directly.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okume/actguard/internal/approval"
	"github.com/okume/actguard/internal/audit"
	"github.com/okume/actguard/internal/confirm"
	"github.com/okume/actguard/internal/dispatch"
	"github.com/okume/actguard/internal/registry"
	"github.com/okume/actguard/internal/risk"
	"github.com/okume/actguard/internal/store"
)

var (
	flagStatePath    string
	flagAuditPath    string
	flagRegistryPath string
	flagWeightsPath  string
)

var rootCmd = &cobra.Command{
	Use:   "actguard",
	Short: "Capability gate for browser automation",
	Long:  "Routes sensitive browser actions — captchas, form submission, session transfer, credential storage — through mode checks, confirmation prompts, and a tamper-evident audit log.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStatePath, "state", "", "Path to the state database (default ~/.actguard/state.db)")
	rootCmd.PersistentFlags().StringVar(&flagAuditPath, "audit-log", "", "Path to the audit log (default ~/.actguard/audit.jsonl)")
	rootCmd.PersistentFlags().StringVar(&flagRegistryPath, "registry", "", "Path to the capability registry YAML (default ~/.actguard/registry.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagWeightsPath, "weights", "", "Path to the risk weights YAML (default ~/.actguard/risk.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".actguard"
	}
	return filepath.Join(home, ".actguard")
}

func statePath() string {
	if flagStatePath != "" {
		return flagStatePath
	}
	return store.DefaultPath()
}

func auditPath() string {
	if flagAuditPath != "" {
		return flagAuditPath
	}
	return filepath.Join(configDir(), "audit.jsonl")
}

// runtime bundles everything a control-plane command needs.
type runtime struct {
	dispatcher *dispatch.Dispatcher
	approvals  *approval.Store
	kv         *store.Store
	log        *audit.Log
}

func (r *runtime) Close() {
	if r.log != nil {
		_ = r.log.Close()
	}
	if r.kv != nil {
		_ = r.kv.Close()
	}
}

// openRuntime builds the dispatcher backed by the configured paths. The
// confirmer parks prompts in the approval store so a second terminal (or the
// MCP tools) can resolve them.
func openRuntime(cfg dispatch.Config) (*runtime, error) {
	reg, err := registry.Load(flagRegistryPath)
	if err != nil {
		return nil, err
	}
	weights, err := risk.LoadWeights(flagWeightsPath)
	if err != nil {
		return nil, err
	}

	kv, err := store.Open(statePath())
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	log, err := audit.Open(auditPath())
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	approvals, err := approval.NewStore(approval.DefaultDir())
	if err != nil {
		log.Close()
		kv.Close()
		return nil, fmt.Errorf("open approval store: %w", err)
	}
	_ = approvals.Cleanup()

	cfg.Store = kv
	cfg.AuditLog = log
	cfg.Registry = reg
	cfg.Weights = weights
	if cfg.Confirmer == nil {
		cfg.Confirmer = &confirm.StoreConfirmer{Store: approvals}
	}
	if cfg.Vault == nil {
		cfg.Vault, err = openVault(kv)
		if err != nil {
			log.Close()
			kv.Close()
			return nil, err
		}
	}

	d, err := dispatch.New(cfg)
	if err != nil {
		log.Close()
		kv.Close()
		return nil, err
	}

	return &runtime{dispatcher: d, approvals: approvals, kv: kv, log: log}, nil
}
