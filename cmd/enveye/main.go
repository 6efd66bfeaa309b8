// Command enveye compares environment snapshot diffs and explains them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/usertbera/enveye"
	"github.com/usertbera/enveye/bubbletea"
	"github.com/usertbera/enveye/chroma"
	"github.com/usertbera/enveye/clipboard"
	"github.com/usertbera/enveye/config"
	"github.com/usertbera/enveye/deepdiff"
	"github.com/usertbera/enveye/fs"
	"github.com/usertbera/enveye/gemini"
	enveyehttp "github.com/usertbera/enveye/http"
	"github.com/usertbera/enveye/lipgloss"
	"github.com/usertbera/enveye/logging"
	"github.com/usertbera/enveye/session"
	"github.com/usertbera/enveye/worddiff"
	"go.uber.org/zap"
)

// ErrMissingAPIKey is returned by serve when no Gemini API key is configured.
var ErrMissingAPIKey = errors.New("gemini api key is not set (GEMINI_API_KEY or gemini.api_key)")

const shutdownTimeout = 10 * time.Second

// cliState is the state shared by the subcommands once the root command has
// loaded the configuration.
type cliState struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
	closeLog   func()
}

// NewRootCommand builds the enveye command tree.
func NewRootCommand() *cobra.Command {
	rt := &cliState{closeLog: func() {}}

	root := &cobra.Command{
		Use:   "enveye",
		Short: "Inspect and explain environment snapshot diffs",
		Long: `EnvEye shows the structural diff between two machine snapshots as a
colour-coded change table and asks an explanation service what the
differences mean for a reported failure.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			rt.closeLog()
		},
	}
	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "path to the config file (default "+fs.DefaultConfigPath()+")")

	root.AddCommand(newViewCommand(rt), newExplainCommand(rt), newServeCommand(rt))
	return root
}

func (rt *cliState) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}
	// The viewer owns the terminal, so only serve logs to the console.
	if cmd.Name() == "serve" {
		logCfg.Console = cmd.ErrOrStderr()
	}
	logger, closeLog, err := logging.New(logCfg)
	if err != nil {
		return err
	}

	rt.cfg = cfg
	rt.logger = logger
	rt.closeLog = closeLog
	return nil
}

// input opens the diff source named by args: a file path, "-" or nothing
// for stdin.
func input(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(args[0])
}

func (rt *cliState) httpExplainer() enveye.Explainer {
	return enveyehttp.NewExplainer(rt.cfg.Service.BaseURL, enveyehttp.WithLogger(rt.logger))
}

func (rt *cliState) sessionOptions() []session.Option {
	return []session.Option{
		session.WithTimeout(rt.cfg.Service.Timeout),
		session.WithLogger(rt.logger),
	}
}

func (rt *cliState) viewer() (*bubbletea.Viewer, error) {
	theme, err := lipgloss.ThemeByName(rt.cfg.Theme)
	if err != nil {
		return nil, err
	}
	tokenizer, err := chroma.NewTokenizer(chroma.StyleFromPalette(theme.Palette()))
	if err != nil {
		return nil, err
	}

	var cb enveye.Clipboard = clipboard.NewSystem()
	if rt.cfg.Clipboard != "" {
		cmdClipboard, err := clipboard.NewCommand(rt.cfg.Clipboard)
		if err != nil {
			return nil, err
		}
		cb = cmdClipboard
	}

	return bubbletea.NewViewer(rt.httpExplainer(),
		bubbletea.WithSessionOptions(rt.sessionOptions()...),
		bubbletea.WithModelOptions(
			bubbletea.WithTheme(theme),
			bubbletea.WithTokenizer(tokenizer),
			bubbletea.WithWordDiffer(worddiff.NewDiffer()),
			bubbletea.WithClipboard(cb),
		),
	), nil
}

func newViewCommand(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "view [file|-]",
		Short: "Browse a diff and request explanations interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := input(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()

			viewer, err := rt.viewer()
			if err != nil {
				return err
			}
			app := &ViewApp{
				Input:  in,
				Parser: deepdiff.NewParser(),
				Viewer: viewer,
			}
			return app.Run(cmd.Context())
		},
	}
}

func newExplainCommand(rt *cliState) *cobra.Command {
	var opts ExplainOptions

	cmd := &cobra.Command{
		Use:   "explain [file|-]",
		Short: "Print the change list of a diff and its explanation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := input(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()

			app := &ExplainApp{
				Input:   in,
				Output:  cmd.OutOrStdout(),
				Parser:  deepdiff.NewParser(),
				Session: session.New(rt.httpExplainer(), rt.sessionOptions()...),
			}
			return app.Run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.ErrorMessage, "error-message", "", "error message reported on the affected machine")
	cmd.Flags().StringVar(&opts.ScreenshotPath, "screenshot", "", "path to a screenshot of the error")
	cmd.Flags().StringVar(&opts.LogPath, "log-path", "", "path of the relevant log file on the affected machine")
	return cmd
}

func newServeCommand(rt *cliState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the explanation service backed by Gemini",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := rt.cfg
			if cfg.Gemini.APIKey == "" {
				return ErrMissingAPIKey
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			client, err := gemini.NewClient(cmd.Context(), cfg.Gemini.APIKey)
			if err != nil {
				return fmt.Errorf("creating gemini client: %w", err)
			}
			defer client.Close()

			explainer := gemini.NewExplainer(client, cfg.Gemini.Model, gemini.WithTimeout(cfg.Gemini.Timeout))
			server, err := enveyehttp.NewServer(explainer, rt.logger, &enveyehttp.ServerConfig{Addr: addr})
			if err != nil {
				return err
			}

			app := &ServeApp{Server: server, ShutdownTimeout: shutdownTimeout}
			return app.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
