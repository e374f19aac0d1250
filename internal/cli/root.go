// Package cli implements the drillsheet command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	service "github.com/okian/drillsheet/internal/app"
	"github.com/okian/drillsheet/internal/config"
	"github.com/okian/drillsheet/pkg/logger"
)

// DefaultOutput is the workbook path used when -o is not given.
const DefaultOutput = "practice_menu.xlsx"

// BuildFunc assembles the generation service from configuration.
type BuildFunc func(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error)

// App holds the process streams and the service factory the commands use.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// IsInteractive reports whether In is a terminal.
	IsInteractive func() bool
	Build         BuildFunc

	cfg *config.Config
	log logger.Logger
}

// NewApp returns an App bound to the process stdio.
func NewApp() *App {
	return &App{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
		Build: service.NewFromConfig,
	}
}

type globalFlags struct {
	assets   string
	config   string
	strict   bool
	logLevel string
}

// NewRootCmd creates the top-level "drillsheet" command.
func NewRootCmd(app *App) *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "drillsheet",
		Short:         "サッカー練習メニューを図解付きExcelで生成します",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.assets, "assets", "", "ground.png と person.png のあるディレクトリ")
	pf.StringVar(&flags.config, "config", "", "YAML 設定ファイル")
	pf.BoolVar(&flags.strict, "strict", false, "存在しない選手を参照する動きをエラーにする")
	pf.StringVar(&flags.logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")

	root.AddCommand(
		newGenerateCmd(app),
		newRenderCmd(app),
		newPreviewCmd(app),
		newLoadtestCmd(app),
	)
	return root
}

// setup loads .env and configuration, then applies flag overrides.
func (a *App) setup(cmd *cobra.Command, flags globalFlags) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg, err := config.Load(cmd.Context(), flags.config)
	if err != nil {
		return err
	}
	if flags.assets != "" {
		cfg.AssetsDir = flags.assets
	}
	if cmd.Flags().Changed("strict") {
		cfg.StrictPlayerRefs = flags.strict
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	// Progress lines already cover the info events.
	if flags.logLevel == "" && cfg.LogLevel == "info" {
		cfg.LogLevel = "warn"
	}

	if err := logger.InitWithWriter(a.Err, cfg.LogFormat); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.Get()
	return nil
}

func (a *App) service(ctx context.Context) (*service.Service, error) {
	return a.Build(ctx, a.cfg, a.log)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}

func writeOutput(path string, data []byte) (string, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}
