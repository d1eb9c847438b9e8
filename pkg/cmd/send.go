package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/mailguard/pkg/cli"
	"github.com/telekom/mailguard/pkg/config"
	"github.com/telekom/mailguard/pkg/mail"
	"github.com/telekom/mailguard/pkg/output"
	"github.com/telekom/mailguard/pkg/system"
)

func NewSendCommand() *cobra.Command {
	var (
		msg        mail.Message
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message through validation, quota and retry",
		Long: "Without --server the message is dispatched synchronously with the SMTP settings from the " +
			"config file. With --server it is submitted to the server's queue.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}

			if rt.server != "" {
				c, err := rt.client()
				if err != nil {
					return err
				}
				resp, err := c.Submit(cmd.Context(), msg)
				if err != nil {
					return err
				}
				if format == output.FormatTable {
					_, _ = fmt.Fprintf(rt.Writer(), "%s %s\n", resp.ID, resp.Status)
					return nil
				}
				return output.WriteObject(rt.Writer(), format, resp)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			zl := zap.NewNop()
			if debug {
				if zl, err = system.NewLogger(true); err != nil {
					return err
				}
				defer func() { _ = zl.Sync() }()
			}

			p := newPipeline(cfg, false, zl.Sugar())
			res, sendErr := p.dispatcher.Dispatch(cmd.Context(), msg)
			if format == output.FormatTable {
				output.WriteResultTable(rt.Writer(), res)
			} else if err := output.WriteObject(rt.Writer(), format, res); err != nil {
				return err
			}

			if sendErr != nil {
				return sendErr
			}
			if res.Status != mail.StatusSent {
				return fmt.Errorf("message %s", res.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&msg.To, "to", nil, "Recipient address (repeatable)")
	cmd.Flags().StringVar(&msg.Subject, "subject", "", "Subject line")
	cmd.Flags().StringVar(&msg.Text, "text", "", "Plain-text body")
	cmd.Flags().StringVar(&msg.HTML, "html", "", "HTML body")
	cmd.Flags().StringVar(&msg.ID, "id", "", "Message ID")
	cmd.Flags().StringVar(&configPath, "config-path", cli.EnvString("MAILGUARD_CONFIG_PATH", config.DefaultPath), "Path to the mailguard configuration file")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log the dispatch pipeline to stderr")
	return cmd
}
