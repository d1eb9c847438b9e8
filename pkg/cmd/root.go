package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/telekom/mailguard/pkg/cli"
	"github.com/telekom/mailguard/pkg/output"
)

type Config struct {
	OutputWriter io.Writer
}

type runtimeState struct {
	outputFormat string
	server       string
	insecure     bool
	writer       io.Writer
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{OutputWriter: os.Stdout}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:          "mailguard",
		Short:        "Outbound email dispatch with validation, quota and retry",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("MAILGUARD_OUTPUT")
			}
			if rt.server == "" {
				rt.server = os.Getenv("MAILGUARD_SERVER")
			}
			if !rt.insecure {
				rt.insecure = cli.EnvBool("MAILGUARD_INSECURE_SKIP_VERIFY", false)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().StringVar(&rt.server, "server", "", "URL of a running mailguard server; commands run in-process when empty")
	root.PersistentFlags().BoolVar(&rt.insecure, "insecure-skip-tls-verify", false, "Skip TLS verification when talking to --server")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewServeCommand(),
		NewValidateCommand(),
		NewSendCommand(),
		NewStatsCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) OutputFormat() (output.Format, error) {
	return output.ParseFormat(rt.outputFormat)
}
