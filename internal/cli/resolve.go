package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stockroom/internal/correlation"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	ReplyPath  string
	QuotedPath string
	Ref        string
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Store an operator's reply against the line item it answers",
		Long: `Resolve an operator reply to a request for data.

The reply holds one unit per line; blank lines are dropped. The line item is
found either from the reference token in the quoted request (--quoted) or
from a structured payload (--ref). A later reply for the same line item
replaces the earlier one.

Example:
  stockroom resolve --reply reply.txt --quoted request.txt
  echo "ACC-1" | stockroom resolve --reply - --ref 'ref1:5:ORD-1:0'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.QuotedPath == "") == (opts.Ref == "") {
				return NewExitError(ExitCommandError, "exactly one of --quoted or --ref is required")
			}

			reply, err := readInput(cmd, opts.ReplyPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read reply", err)
			}

			e, cleanup, err := setup(opts.RootOptions, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := commandContext(cmd)
			var res correlation.Result
			if opts.Ref != "" {
				ref, perr := correlation.ParseReference(opts.Ref)
				if perr != nil {
					return WrapDomainError("invalid reference", perr)
				}
				res, err = e.resolver().ResolveReference(ctx, ref, correlation.SplitLines(reply))
			} else {
				quoted, qerr := os.ReadFile(opts.QuotedPath)
				if qerr != nil {
					return WrapExitError(ExitCommandError, "failed to read quoted request", qerr)
				}
				res, err = e.resolver().ResolveReply(ctx, correlation.Submission{
					RawReplyText:       reply,
					QuotedOriginalText: string(quoted),
				})
			}
			if err != nil {
				return WrapDomainError("resolve failed", err)
			}
			return e.out.Success(res, func(w io.Writer) error { return renderResult(w, res) })
		},
	}

	cmd.Flags().StringVar(&opts.ReplyPath, "reply", "-", "file holding the reply text (- for stdin)")
	cmd.Flags().StringVar(&opts.QuotedPath, "quoted", "", "file holding the quoted request message")
	cmd.Flags().StringVar(&opts.Ref, "ref", "", "reference payload (ref1:...) or token (Ref: <id> | Idx: <n>)")

	return cmd
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
