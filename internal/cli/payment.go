package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stockroom/internal/payment"
)

// PaymentOptions holds flags for the payment command.
type PaymentOptions struct {
	*RootOptions
	Amount int64
}

// NewPaymentCommand creates the payment command.
func NewPaymentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PaymentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "payment <order-id> <kind>",
		Short: "Apply a verified payment gateway event",
		Long: `Apply a payment event to an order.

Kinds: CAPTURED, SETTLED (to PROCESSING), DENIED, CANCELLED (to FAILED),
EXPIRED. Status only moves forward: a late or repeated event is recorded and
ignored. Entering PROCESSING triggers allocation.

Example:
  stockroom payment ORD-1 captured --amount 1500
  stockroom payment ORD-1 expired`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := payment.ParseEventKind(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid event kind", err)
			}

			e, cleanup, err := setup(opts.RootOptions, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			guard := payment.NewGuard(e.store, e.engine(), e.logger)
			outcome, err := guard.Apply(commandContext(cmd), payment.Event{
				OrderID: args[0],
				Kind:    kind,
				Amount:  opts.Amount,
			})
			if err != nil {
				if outcome.Transitioned {
					// The status change committed; only the allocation step failed.
					_ = e.out.Success(outcome, func(w io.Writer) error { return renderOutcome(w, outcome) })
				}
				return WrapDomainError("payment event failed", err)
			}
			return e.out.Success(outcome, func(w io.Writer) error { return renderOutcome(w, outcome) })
		},
	}

	cmd.Flags().Int64Var(&opts.Amount, "amount", 0, "amount reported by the gateway")

	return cmd
}

// NewConfirmCommand creates the confirm command.
func NewConfirmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <order-id>",
		Short: "Mark a PROCESSING order as PAID",
		Long: `Confirm an order after manual fulfillment.

Only PROCESSING orders can be confirmed. Confirming a PAID order is a no-op.

Example:
  stockroom confirm ORD-1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			guard := payment.NewGuard(e.store, nil, e.logger)
			outcome, err := guard.Confirm(commandContext(cmd), args[0])
			if err != nil {
				return WrapDomainError("confirm failed", err)
			}
			return e.out.Success(outcome, func(w io.Writer) error { return renderOutcome(w, outcome) })
		},
	}
}
