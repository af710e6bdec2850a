package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/fspurge/internal/config"
	"github.com/fenilsonani/fspurge/internal/exclude"
	"github.com/fenilsonani/fspurge/internal/match"
	"github.com/fenilsonani/fspurge/internal/platform"
	"github.com/fenilsonani/fspurge/internal/procs"
	"github.com/fenilsonani/fspurge/internal/remover"
	"github.com/fenilsonani/fspurge/internal/reporter"
	"github.com/fenilsonani/fspurge/internal/scanner"
	"github.com/fenilsonani/fspurge/internal/sizecache"
	"github.com/fenilsonani/fspurge/internal/snapshot"
	"github.com/fenilsonani/fspurge/pkg/utils"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath    string
	verbose       bool
	outputFmt     string
	extraExcludes []string
	forceMode     bool
	skipConfirm   bool
	noSnapshot    bool
	dryRun        bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fspurge",
	Short: "Find and remove leftover application files",
	Long: `fsPurge discovers the files an application scattered across the system,
shows them grouped by location, and removes them with an optional sealed
restore point to roll back from.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
}

var scanCmd = &cobra.Command{
	Use:   "scan <app name>",
	Short: "Discover leftover files for an application",
	Long:  `Walks the configured search roots and reports every path plausibly belonging to the application, without changing anything.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		result, closeCache, err := runScan(cmd.Context(), cfg, args[0], false)
		if err != nil {
			return err
		}
		defer closeCache()

		return reporter.New(os.Stdout, reporter.OutputFormat(outputFmt)).ReportScan(result)
	},
}

var quickCmd = &cobra.Command{
	Use:   "quick <app name>",
	Short: "Fast top-level scan of the standard locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		result, closeCache, err := runScan(cmd.Context(), cfg, args[0], true)
		if err != nil {
			return err
		}
		defer closeCache()

		return reporter.New(os.Stdout, reporter.OutputFormat(outputFmt)).ReportScan(result)
	},
	Args: cobra.ExactArgs(1),
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <app name>",
	Short: "Scan and remove an application's leftovers",
	Long: `Discovers the application's files, shows them, optionally seals a restore
point, and removes everything after confirmation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appName := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		result, closeCache, err := runScan(ctx, cfg, appName, false)
		if err != nil {
			return err
		}
		defer closeCache()

		rptr := reporter.New(os.Stdout, reporter.FormatTree)
		if err := rptr.ReportScan(result); err != nil {
			return err
		}
		if len(result.Candidates) == 0 {
			return nil
		}

		if running, err := procs.Running(ctx, appName); err == nil && len(running) > 0 {
			fmt.Printf("\nWarning: %q appears to be running (", appName)
			for i, p := range running {
				if i > 0 {
					fmt.Print(", ")
				}
				fmt.Printf("%s pid %d", p.Name, p.PID)
			}
			fmt.Println("). Close it before removing.")
		}

		if dryRun {
			fmt.Printf("\nDry run: %d entries, %s would be removed.\n",
				len(result.Candidates), utils.FormatBytes(result.TotalSize))
			return nil
		}

		if !skipConfirm && !confirm(fmt.Sprintf("\nRemove %d entries (%s)?",
			len(result.Candidates), utils.FormatBytes(result.TotalSize))) {
			fmt.Println("Aborted.")
			return nil
		}

		var mgr *snapshot.Manager
		if cfg.Snapshot.Enabled && !noSnapshot {
			mgr = snapshot.NewManager(cfg.Snapshot)
			name := match.CleanName(appName) + "_preremove"
			createReport, err := mgr.Create(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to create restore point: %w", err)
			}
			printCreateReport(createReport)
		}

		mode := remover.ModeStandard
		if forceMode || cfg.ForcedMode {
			mode = remover.ModeForced
		}

		platformInfo, err := platform.GetInfo()
		if err != nil {
			return fmt.Errorf("failed to get platform info: %w", err)
		}

		var elevator remover.Elevator
		if mode == remover.ModeForced {
			elevator = remover.NewSudoElevator()
		}

		r := remover.New(elevator, platformInfo.ProtectedPaths)

		if mgr != nil {
			release := mgr.LockCategories(snapshot.CategoryHome, snapshot.CategorySystem)
			defer release()
		}

		report, err := r.Remove(ctx, result.Candidates, mode)
		if report != nil {
			fmt.Println()
			reporter.New(os.Stdout, reporter.OutputFormat(outputFmt)).ReportRemoval(report)
		}
		return err
	},
}

var forceCmd = &cobra.Command{
	Use:   "force <app name>",
	Short: "Uninstall with forced removal",
	Long: `Behaves like uninstall --force: write protection is stripped before
retrying, and stubborn entries fall back to elevated removal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		forceMode = true
		return uninstallCmd.RunE(cmd, args)
	},
}

var restorepointCmd = &cobra.Command{
	Use:   "restorepoint <name>",
	Short: "Seal a restore point of the configured paths",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		createReport, err := snapshot.NewManager(cfg.Snapshot).Create(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to create restore point: %w", err)
		}

		printCreateReport(createReport)
		return nil
	},
}

func printCreateReport(r *snapshot.CreateReport) {
	fmt.Printf("Restore point sealed: %s (%d paths staged", r.ArchivePath, r.Staged)
	if r.Failed > 0 {
		fmt.Printf(", %d files failed to copy", r.Failed)
	}
	fmt.Println(")")
}

var restoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Restore a sealed restore point onto the live filesystem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if !skipConfirm && !confirm(fmt.Sprintf("Restore %q over the live filesystem?", args[0])) {
			fmt.Println("Aborted.")
			return nil
		}

		report, err := snapshot.NewManager(cfg.Snapshot).Restore(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored %d paths", report.Restored)
		if report.Failed > 0 {
			fmt.Printf(", %d failed", report.Failed)
		}
		fmt.Println(".")
		return nil
	},
}

var listRestorepointsCmd = &cobra.Command{
	Use:   "list-restorepoints",
	Short: "List sealed restore points, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		infos, err := snapshot.NewManager(cfg.Snapshot).List()
		if err != nil {
			return err
		}

		return reporter.New(os.Stdout, reporter.OutputFormat(outputFmt)).ReportRestorePoints(infos)
	},
}

var sweepCacheCmd = &cobra.Command{
	Use:   "sweep-cache",
	Short: "Evict stale entries from the size cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cache, err := sizecache.Open(cmd.Context(), config.ExpandHome(cfg.Cache.Path))
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer cache.Close()

		evicted, err := cache.Sweep(cmd.Context())
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}

		fmt.Printf("Evicted %d stale entries.\n", evicted)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the active configuration file path, creating it if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.EnsureConfigExists()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&outputFmt, "output", "summary", "output format (summary, tree, json, yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&extraExcludes, "exclude", nil, "extra path fragments to exclude from matching")

	uninstallCmd.Flags().BoolVar(&forceMode, "force", false, "strip write protection and fall back to elevated removal")
	uninstallCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "skip confirmation prompts")
	uninstallCmd.Flags().BoolVar(&noSnapshot, "no-restorepoint", false, "skip the pre-removal restore point")
	uninstallCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be removed without removing")

	forceCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "skip confirmation prompts")
	forceCmd.Flags().BoolVar(&noSnapshot, "no-restorepoint", false, "skip the pre-removal restore point")
	forceCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be removed without removing")

	restoreCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "skip confirmation prompts")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(quickCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(forceCmd)
	rootCmd.AddCommand(restorepointCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(listRestorepointsCmd)
	rootCmd.AddCommand(sweepCacheCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.EnsureConfigExists()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}

// runScan wires the exclusion engine, size cache and scanner together and
// runs either a full or a quick scan. The returned func closes the cache.
func runScan(ctx context.Context, cfg *config.Config, appName string, quick bool) (*scanner.Result, func(), error) {
	platformInfo, err := platform.GetInfo()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get platform info: %w", err)
	}

	roots := cfg.ExpandedSearchRoots()
	if len(roots) == 0 {
		roots = platformInfo.SearchRoots
	}

	engine := exclude.NewEngine(cfg.ExcludedLocations, extraExcludes)

	closeCache := func() {}
	var cache *sizecache.Cache
	if cfg.Cache.Path != "" {
		cache, err = sizecache.Open(ctx, config.ExpandHome(cfg.Cache.Path))
		if err != nil {
			if verbose {
				fmt.Fprintf(os.Stderr, "size cache unavailable: %v\n", err)
			}
		} else {
			closeCache = func() { cache.Close() }
		}
	}

	s := scanner.New(engine, cache)

	fmt.Printf("Scanning for %q across %d locations...\n", appName, len(roots))

	var result *scanner.Result
	if quick {
		result, err = s.QuickScan(ctx, appName, roots)
	} else {
		result, err = s.Scan(ctx, appName, roots)
	}
	if err != nil {
		closeCache()
		return nil, nil, fmt.Errorf("scan failed: %w", err)
	}

	return result, closeCache, nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
