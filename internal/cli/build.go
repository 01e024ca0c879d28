package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/luadox/internal/config"
	"github.com/mvp-joe/luadox/internal/prerender"
	"github.com/mvp-joe/luadox/internal/refs"
	"github.com/mvp-joe/luadox/internal/render"
)

var (
	outDirFlag string
	formatFlag []string
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build documentation from Lua sources",
	Long: `Build scans the configured Lua sources, parses documentation
comments, resolves cross-references, and writes the output pages.

Examples:
  # Build using luadox.yml in the current directory
  luadox build

  # Build a different project
  luadox build -C /path/to/project

  # Write a JSON dump alongside the markdown pages
  luadox build --format markdown --format json
`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVarP(&outDirFlag, "out", "o", "", "output directory (overrides output.dir)")
	buildCmd.Flags().StringArrayVar(&formatFlag, "format", nil, "output formats: markdown, json (overrides output.formats)")
}

func runBuild(cmd *cobra.Command, args []string) error {
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
	res, err := runPipeline(rootDir, cfg, logger, !quiet)
	if err != nil {
		return err
	}
	return writeOutputs(rootDir, cfg, res, logger)
}

func applyBuildFlags(cfg *config.Config) {
	if outDirFlag != "" {
		cfg.Output.Dir = outDirFlag
	}
	if len(formatFlag) > 0 {
		cfg.Output.Formats = formatFlag
	}
}

func writeOutputs(rootDir string, cfg *config.Config, res *prerender.Result, logger *log.Logger) error {
	outDir := cfg.Output.Dir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(rootDir, outDir)
	}

	if cfg.WantsFormat("markdown") {
		ctx := refs.NewContext(logger)
		if err := render.NewMarkdownRenderer(outDir, ctx).Render(res); err != nil {
			return err
		}
		logger.Infof("wrote markdown pages to %s", outDir)
	}
	if cfg.WantsFormat("json") {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		path := filepath.Join(outDir, "luadox.json")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		if err := render.JSON(f, res); err != nil {
			return err
		}
		logger.Infof("wrote documentation graph to %s", path)
	}
	return nil
}
