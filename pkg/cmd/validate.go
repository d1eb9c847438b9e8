package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telekom/mailguard/pkg/client"
	"github.com/telekom/mailguard/pkg/output"
	"github.com/telekom/mailguard/pkg/recipient"
)

func NewValidateCommand() *cobra.Command {
	var (
		production bool
		allowEmpty bool
		maxLength  int
	)

	cmd := &cobra.Command{
		Use:   "validate ADDRESS...",
		Short: "Check recipient addresses; exits non-zero when any is rejected",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}

			var verdicts []output.Verdict
			if rt.server != "" {
				verdicts, err = validateRemote(cmd, rt, args)
				if err != nil {
					return err
				}
			} else {
				env := ""
				if production {
					env = recipient.ProductionEnvironment
				}
				opts := recipient.DefaultOptions(env)
				opts.AllowEmpty = allowEmpty
				if maxLength > 0 {
					opts.MaxLength = maxLength
				}
				v := recipient.New(opts)
				for _, in := range args {
					verdicts = append(verdicts, output.Verdict{Input: in, Result: v.Validate(in)})
				}
			}

			if format == output.FormatTable {
				output.WriteVerdictTable(rt.Writer(), verdicts)
			} else if err := output.WriteObject(rt.Writer(), format, verdicts); err != nil {
				return err
			}

			rejected := 0
			for _, v := range verdicts {
				if !v.Valid {
					rejected++
				}
			}
			if rejected > 0 {
				return fmt.Errorf("%d of %d addresses rejected", rejected, len(verdicts))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&production, "production", false, "Apply production rules (block disposable domains)")
	cmd.Flags().BoolVar(&allowEmpty, "allow-empty", false, "Treat empty addresses as valid")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "Maximum address length (default 254)")
	return cmd
}

// validateRemote asks the server, which applies its own configured rules.
func validateRemote(cmd *cobra.Command, rt *runtimeState, args []string) ([]output.Verdict, error) {
	c, err := rt.client()
	if err != nil {
		return nil, err
	}
	res, err := c.Validate(cmd.Context(), args)
	if err != nil {
		return nil, err
	}

	verdicts := make([]output.Verdict, 0, len(args))
	for _, addr := range res.Accepted {
		verdicts = append(verdicts, output.Verdict{Input: addr, Result: recipient.Result{Valid: true, Address: addr}})
	}
	for _, r := range res.Rejected {
		verdicts = append(verdicts, output.Verdict{Input: r.Input, Result: recipient.Result{Code: r.Code, Reason: r.Reason}})
	}
	return verdicts, nil
}

func (rt *runtimeState) client() (*client.Client, error) {
	var opts []client.Option
	if rt.insecure {
		opts = append(opts, client.WithInsecureSkipVerify())
	}
	return client.New(rt.server, opts...)
}
