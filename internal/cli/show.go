package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// NewShowCommand creates the show command and its order/product subcommands.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored order or product",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "order <order-id>",
		Short:         "Print an order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			o, err := e.store.GetOrder(commandContext(cmd), args[0])
			if err != nil {
				return WrapDomainError("show order failed", err)
			}
			e.out.Dump("order", o)
			return e.out.Success(o, func(w io.Writer) error { return renderOrder(w, o) })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "product <product-id>",
		Short:         "Print a product and its stock levels",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := e.store.GetProduct(commandContext(cmd), args[0])
			if err != nil {
				return WrapDomainError("show product failed", err)
			}
			return e.out.Success(p, func(w io.Writer) error { return renderProduct(w, p) })
		},
	})

	return cmd
}

// NewRequestsCommand creates the requests command.
func NewRequestsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "requests <order-id>",
		Short: "Print request-for-data messages for unfilled line items",
		Long: `Print one message per line item that still needs an operator.

Each message ends with a reference token. Quote the message in the reply so
'stockroom resolve' can find the line item.

Example:
  stockroom requests ORD-1 > request.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			reqs, err := e.engine().PendingRequests(commandContext(cmd), args[0])
			if err != nil {
				return WrapDomainError("requests failed", err)
			}
			return e.out.Success(reqs, func(w io.Writer) error { return renderRequests(w, reqs) })
		},
	}
}
