package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// NewAllocateCommand creates the allocate command.
func NewAllocateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "allocate <order-id>",
		Short: "Allocate stock to an order's unfilled line items",
		Long: `Run the allocation engine for one order.

Each line item is filled from stock in full or not at all. Items that cannot
be filled are reported as NEEDS_MANUAL with a reason. Running allocate again
on a complete order changes nothing, so it is safe to use as a re-check after
a restock.

Example:
  stockroom allocate ORD-1
  stockroom allocate ORD-1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := e.engine().Allocate(commandContext(cmd), args[0])
			if err != nil {
				return WrapDomainError("allocation failed", err)
			}
			e.out.Dump("allocation report", report)
			return e.out.Success(report, func(w io.Writer) error { return renderReport(w, report) })
		},
	}
}
