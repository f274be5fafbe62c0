package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/okume/actguard/internal/dispatch"
	"github.com/okume/actguard/internal/mcp"
	"github.com/okume/actguard/internal/registry"
	"github.com/okume/actguard/internal/risk"
)

// reloadDebounce coalesces bursts of file events (editors write config files
// several times per save).
const reloadDebounce = 200 * time.Millisecond

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP tool server for agent integration",
	Long: `Runs actguard as an MCP (Model Context Protocol) server over stdio.
Exposes gated tools: dispatch, check, risk, pending, approve, deny.

The capability registry and risk weights are hot-reloaded when their YAML
files change. Assisted actions park in the approval store and wait for
"actguard approve" from another terminal or the approve tool.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(dispatch.Config{})
	if err != nil {
		return err
	}
	defer rt.Close()

	srv, err := mcp.New(mcp.Config{
		Dispatcher: rt.dispatcher,
		Approvals:  rt.approvals,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nshutting down")
		cancel()
	}()

	go watchConfig(ctx, rt.dispatcher)

	fmt.Fprintln(os.Stderr, "actguard MCP server running on stdio")
	return srv.Run(ctx)
}

// watchConfig hot-reloads the registry and weight tables when their files
// change. Reload failures keep the previous tables and log to stderr; a
// broken edit never takes the gate down.
func watchConfig(ctx context.Context, d *dispatch.Dispatcher) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "actguard: config watch unavailable: %v\n", err)
		return
	}
	defer watcher.Close()

	dir := configDir()
	if err := watcher.Add(dir); err != nil {
		// Missing config dir means defaults only; nothing to reload.
		return
	}

	registryFile := flagRegistryPath
	if registryFile == "" {
		registryFile = filepath.Join(dir, "registry.yaml")
	}
	weightsFile := flagWeightsPath
	if weightsFile == "" {
		weightsFile = filepath.Join(dir, "risk.yaml")
	}

	// Single debounce timer, reset on each relevant event.
	debounce := time.NewTimer(reloadDebounce)
	debounce.Stop()
	pending := map[string]bool{}

	reload := func() {
		if pending[registryFile] {
			if reg, err := registry.Load(registryFile); err != nil {
				fmt.Fprintf(os.Stderr, "actguard: registry reload failed, keeping previous: %v\n", err)
			} else {
				d.Reconfigure(reg, nil)
				fmt.Fprintln(os.Stderr, "actguard: registry reloaded")
			}
		}
		if pending[weightsFile] {
			if w, err := risk.LoadWeights(weightsFile); err != nil {
				fmt.Fprintf(os.Stderr, "actguard: risk weights reload failed, keeping previous: %v\n", err)
			} else {
				d.Reconfigure(nil, w)
				fmt.Fprintln(os.Stderr, "actguard: risk weights reloaded")
			}
		}
		pending = map[string]bool{}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-debounce.C:
			reload()

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if event.Name != registryFile && event.Name != weightsFile {
				continue
			}
			pending[event.Name] = true
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(reloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			_ = err
		}
	}
}
