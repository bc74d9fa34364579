package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/regionlock/cmd/rlockctl/cmdutil"
	"github.com/marmos91/regionlock/internal/logger"
	"github.com/marmos91/regionlock/pkg/regionlock"
	"github.com/spf13/cobra"
)

var (
	unlockStart int64
	unlockLen   int64
)

var unlockCmd = &cobra.Command{
	Use:   "unlock <file>",
	Short: "Release a byte-range this invocation owns",
	Long: `Attach to the shared segment for <file> and issue an UNLOCK request
for [--start, --start+--len).

Because a lock's owner is a (pid, descriptor) pair and every rlockctl
invocation is a fresh process, this only has an observable effect
against records this same invocation has just created (see the
--interactive mode of "rlockctl lock" for releasing a region held by a
still-running process). Unlocking a region this invocation never held
is not an error, matching fcntl's own UNLOCK semantics.`,
	Args: cobra.ExactArgs(1),
	RunE: runUnlock,
}

func init() {
	unlockCmd.Flags().Int64Var(&unlockStart, "start", 0, "Region start offset")
	unlockCmd.Flags().Int64Var(&unlockLen, "len", 0, "Region length (0 means to end of file)")
}

func runUnlock(cmd *cobra.Command, args []string) error {
	path := args[0]

	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	h, err := regionlock.Attach(path)
	if err != nil {
		return fmt.Errorf("attach %s: %w", path, err)
	}
	defer regionlock.Detach(h)

	spec := regionlock.LockSpec{Op: regionlock.OpUnlock, Start: unlockStart, Len: unlockLen}
	logger.InfoCtx(cmd.Context(), "requesting unlock", logger.Start(unlockStart), logger.Length(unlockLen), logger.PID(int(h.PID)), logger.Descriptor(int(h.Descriptor)))
	if err := regionlock.Request(h, regionlock.ModeNonBlocking, spec, 0, fi.Size()); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	released, _ := regionlock.Normalize(spec, 0, fi.Size())
	cmdutil.PrintSuccess(fmt.Sprintf("released [%d,%d)", released.Start, released.End()))
	return nil
}
