package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stockroom/internal/catalog"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Load products and orders from a seed file",
		Long: `Load a YAML (.yaml, .yml) or CUE (.cue) catalog into the database.

Products are upserted: their stock is replaced and the delivered counter is
kept. Orders are created as PENDING; orders that already exist are skipped.
Stock units that the ledger shows as already delivered are dropped.

Example:
  stockroom load seed.yaml
  stockroom --db /tmp/shop.db load seed.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.LoadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load catalog", err)
			}

			e, cleanup, err := setup(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			e.out.VerboseLog("catalog %s: %d product(s), %d order(s)", args[0], len(c.Products), len(c.Orders))
			res, err := c.Apply(commandContext(cmd), e.store, e.logger)
			if err != nil {
				return WrapDomainError("failed to apply catalog", err)
			}
			return e.out.Success(res, func(w io.Writer) error { return renderApply(w, res) })
		},
	}
}
