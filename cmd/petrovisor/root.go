package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"petrovisor/internal/config"
	"petrovisor/internal/format"
	"petrovisor/internal/logging"
	"petrovisor/pkg/petrovisor"
)

// version is set at build time via -ldflags.
var version = "dev"

// app holds the persistent flags and the state shared by all commands of
// one invocation.
type app struct {
	configPath string
	profile    string
	workspace  string
	logLevel   string
	logFormat  string
	output     string
	trace      bool

	mode       format.Mode
	tp         *sdktrace.TracerProvider
	registerer prometheus.Registerer
	client     *petrovisor.Client
	stderr     io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}
	root := &cobra.Command{
		Use:   "petrovisor",
		Short: "Command line client for the PetroVisor web API",
		Long: `petrovisor reads and writes workspace items, signal data, reference
tables, pivot tables and files of a PetroVisor workspace.

Connection settings come from a profile in ~/.petrovisor.yaml and can be
overridden with PETROVISOR_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/"+config.DefaultFileName+")")
	pf.StringVarP(&a.profile, "profile", "p", "", "config profile")
	pf.StringVarP(&a.workspace, "workspace", "w", "", "workspace, overrides the profile")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVarP(&a.output, "output", "o", "table", "output format: table, markdown, csv, json, yaml")
	pf.BoolVar(&a.trace, "trace", false, "print API call spans to stderr")

	root.AddCommand(
		newKeyCmd(a),
		newProfilesCmd(a),
		newItemsCmd(a),
		newEntitiesCmd(a),
		newSignalsCmd(a),
		newUnitsCmd(a),
		newDataCmd(a),
		newRefTablesCmd(a),
		newPivotCmd(a),
		newPSharpCmd(a),
		newFilesCmd(a),
		newWorkflowCmd(a),
		newLogCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	logging.Init(level, a.logFormat, a.stderr)

	switch a.output {
	case "json", "yaml":
	default:
		if a.mode, err = format.ParseMode(a.output); err != nil {
			return err
		}
	}

	if a.trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(a.stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		a.tp = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	}
	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if a.tp == nil {
		return nil
	}
	return a.tp.Shutdown(context.WithoutCancel(ctx))
}

// connect returns the client for the selected profile, creating it on first
// use.
func (a *app) connect(ctx context.Context) (*petrovisor.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	file, err := config.LoadFromPath(path)
	if err != nil {
		if a.configPath != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		file = nil
	}
	profile, err := file.Profile(a.profile)
	if err != nil {
		return nil, err
	}
	profile = profile.ApplyEnv(os.LookupEnv)
	if a.workspace != "" {
		profile.Workspace = a.workspace
	}
	if profile.Workspace == "" {
		return nil, errors.New("no workspace: set --workspace, PETROVISOR_WORKSPACE or the profile's workspace")
	}

	opts, err := profile.ClientOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, petrovisor.WithLogger(logging.New("client")))
	if a.tp != nil {
		opts = append(opts, petrovisor.WithTracerProvider(a.tp))
	}
	if a.registerer != nil {
		opts = append(opts, petrovisor.WithMetrics(a.registerer))
	}
	c, err := petrovisor.New(ctx, profile.Workspace, opts...)
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
