// Package commands implements the CLI command structure using Cobra.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sdcpp-tools/sdcli/cli/config"
)

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig ConfigLoader
	stdout     io.Writer
	stderr     io.Writer

	// rawArgs are the unparsed command-line arguments, kept so unsupported
	// flags skipped by the parser can still be reported.
	rawArgs []string

	cfgFile string
	cfg     *config.Config

	flags generateFlags
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithIO injects process output streams.
func WithIO(stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig: config.LoadConfig,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		rawArgs:    os.Args[1:],
	}

	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sdcli",
		Short: "sdcli - image generation client for the stable-diffusion.cpp sd-server",
		Long: `sdcli submits an image generation request to a stable-diffusion.cpp
sd-server exposing the OpenAI-compatible images/generations API and writes
the returned images to disk.

Parameters outside the OpenAI schema are forwarded inside the prompt as an
embedded extension block that the server strips before rendering, so new
server parameters keep working without a client update.

Examples:
  sdcli --server-url http://localhost:8080 -p "a lighthouse at dusk"
  sdcli -p "portrait" -W 768 -H 512 -b 4 -o out_%03d.png
  SD_SERVER_URL=http://localhost:8080 sdcli -p "a fox" --steps 30 -o fox.jpg`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		RunE:               a.runGenerate,
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.sdcli/config.yaml)")
	a.addGenerateFlags(root)

	root.AddCommand(a.newVersionCommand())

	return root
}

// SetArgs overrides the command-line arguments, primarily for tests.
func (a *App) SetArgs(args []string) {
	a.rawArgs = args
	a.root.SetArgs(args)
}

// Execute runs the root command. Errors are reported once, here, on the
// diagnostic stream.
func (a *App) Execute() error {
	err := a.root.Execute()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	return err
}

func (a *App) initConfig() error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := a.loadConfig(path)
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}
	a.cfg = cfg

	return a.applyConfig(a.root.Flags())
}

func (a *App) stdoutIsTerminal() bool {
	f, ok := a.stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
