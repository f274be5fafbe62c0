package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okume/actguard/internal/registry"
	"github.com/okume/actguard/internal/risk"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap the actguard configuration directory",
	Long: `Creates ~/.actguard/ with commented default config files:

  registry.yaml   capability registry (per-action levels and min modes)
  risk.yaml       risk weights and thresholds

Existing files are left alone unless --force is given.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := configDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{"registry.yaml", registry.DefaultConfigYAML()},
		{"risk.yaml", risk.DefaultWeightsYAML()},
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil && !initForce {
			fmt.Printf("exists, skipping: %s\n", path)
			continue
		}
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
		fmt.Printf("created: %s\n", path)
	}

	fmt.Printf("\nconfig directory ready: %s\n", dir)
	return nil
}
