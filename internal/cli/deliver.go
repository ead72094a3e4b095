package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/stockroom/internal/correlation"
	"github.com/roach88/stockroom/internal/reseller"
)

// NewDeliverCommand creates the deliver command.
func NewDeliverCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deliver <order-id> <index> <target>",
		Short: "Fulfill an EXTERNAL_API line item through the reseller",
		Long: `Request units from the reseller API for one line item and store them.

The target is passed to the reseller as-is (a phone number or account id).
Requires reseller.base_url in the config file. Failures are not retried.

Example:
  stockroom deliver ORD-7 0 +15550100`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid line item index", err)
			}

			e, cleanup, err := setup(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if e.cfg.Reseller.BaseURL == "" {
				return NewExitError(ExitCommandError, "reseller.base_url is not configured")
			}
			client := reseller.NewClient(e.cfg.Reseller.BaseURL, e.cfg.Reseller.APIKey, e.cfg.Reseller.Timeout.Std())
			f := reseller.NewFulfiller(e.store, client, e.resolver(), e.logger)

			res, err := f.Fulfill(commandContext(cmd), correlation.Reference{OrderID: args[0], Index: index}, args[2])
			if err != nil {
				if len(res.Lines) > 0 {
					_ = e.out.Success(res, func(w io.Writer) error { return renderResult(w, res) })
				}
				return WrapDomainError("delivery failed", err)
			}
			return e.out.Success(res, func(w io.Writer) error { return renderResult(w, res) })
		},
	}
}
