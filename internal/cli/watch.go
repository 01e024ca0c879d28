package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/luadox/internal/config"
	"github.com/mvp-joe/luadox/internal/watcher"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild documentation whenever sources change",
	Long: `Watch performs an initial build and then monitors the source
directories and manual pages, rebuilding the documentation whenever a
.lua or .md file is saved.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&outDirFlag, "out", "o", "", "output directory (overrides output.dir)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	rootDir, err := resolveProjectDir()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyBuildFlags(cfg)
	logger := newLogger()

	rebuild := func() {
		res, err := runPipeline(rootDir, cfg, logger, false)
		if err != nil {
			logger.Errorf("build failed: %s", err)
			return
		}
		if err := writeOutputs(rootDir, cfg, res, logger); err != nil {
			logger.Errorf("write failed: %s", err)
		}
	}
	rebuild()

	dirs := make([]string, 0, len(cfg.Paths.Sources))
	for _, src := range cfg.Paths.Sources {
		if !filepath.IsAbs(src) {
			src = filepath.Join(rootDir, src)
		}
		if info, err := os.Stat(src); err == nil && info.IsDir() {
			dirs = append(dirs, src)
		} else {
			dirs = append(dirs, filepath.Dir(src))
		}
	}
	for _, page := range cfg.Manual {
		path := page.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(rootDir, path)
		}
		dirs = append(dirs, filepath.Dir(path))
	}

	fw, err := watcher.NewFileWatcher(dirs, []string{".lua", ".md"}, logger)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fw.Stop()

	err = fw.Start(ctx, func(files []string) {
		logger.Infof("%d file(s) changed, rebuilding", len(files))
		// Pause so edits made during the rebuild queue up rather than
		// triggering overlapping builds.
		fw.Pause()
		rebuild()
		fw.Resume()
	})
	if err != nil {
		return err
	}

	logger.Infof("watching %d directories for changes (Ctrl+C to stop)", len(dirs))
	<-ctx.Done()
	return nil
}
