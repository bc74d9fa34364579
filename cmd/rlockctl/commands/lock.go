package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/marmos91/regionlock/cmd/rlockctl/cmdutil"
	"github.com/marmos91/regionlock/internal/logger"
	"github.com/marmos91/regionlock/pkg/regionlock"
	"github.com/spf13/cobra"
)

var (
	lockStart       int64
	lockLen         int64
	lockType        string
	lockBlocking    bool
	lockHold        time.Duration
	lockInteractive bool
)

var lockCmd = &cobra.Command{
	Use:   "lock <file>",
	Short: "Attach to a file and request a read or write lock",
	Long: `Attach to the shared segment for <file> and request a byte-range
lock, the way an embedding process would call Attach then Request.

By default the process acquires the lock, holds it for --hold (zero by
default), then detaches, which releases every region it still owns.
With --interactive, it instead reads newline-terminated commands from
stdin ("unlock" releases the held region, anything else or EOF ends
the session and detaches) so a shell script can drive a long-lived
holder while testing conflicts from a second rlockctl invocation.`,
	Args: cobra.ExactArgs(1),
	RunE: runLock,
}

func init() {
	lockCmd.Flags().Int64Var(&lockStart, "start", 0, "Region start offset")
	lockCmd.Flags().Int64Var(&lockLen, "len", 0, "Region length (0 means to end of file)")
	lockCmd.Flags().StringVar(&lockType, "type", "read", "Lock type: read|write")
	lockCmd.Flags().BoolVar(&lockBlocking, "blocking", false, "Block until the region becomes compatible (SETLKW)")
	lockCmd.Flags().DurationVar(&lockHold, "hold", 0, "How long to hold the lock before detaching")
	lockCmd.Flags().BoolVar(&lockInteractive, "interactive", false, "Read unlock/quit commands from stdin instead of --hold")
}

func runLock(cmd *cobra.Command, args []string) error {
	path := args[0]

	var op regionlock.Op
	switch strings.ToLower(lockType) {
	case "read":
		op = regionlock.OpRead
	case "write":
		op = regionlock.OpWrite
	default:
		return fmt.Errorf("invalid --type %q (must be read or write)", lockType)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	fileSize := fi.Size()

	h, err := regionlock.Attach(path)
	if err != nil {
		return fmt.Errorf("attach %s: %w", path, err)
	}
	defer func() {
		if derr := regionlock.Detach(h); derr != nil {
			cmdutil.PrintErrorf("detach: %v", derr)
		}
	}()

	region := regionlock.LockSpec{Op: op, Start: lockStart, Len: lockLen}
	mode := regionlock.ModeNonBlocking
	if lockBlocking {
		mode = regionlock.ModeBlocking
	}

	logger.InfoCtx(cmd.Context(), "requesting lock", logger.Start(lockStart), logger.Length(lockLen), logger.LockType(lockType), logger.PID(int(h.PID)), logger.Descriptor(int(h.Descriptor)))

	if err := regionlock.Request(h, mode, region, 0, fileSize); err != nil {
		if regionlock.IsWouldBlock(err) {
			cmdutil.PrintErrorf("region conflicts with an existing lock: %v", err)
			return err
		}
		return fmt.Errorf("request: %w", err)
	}
	held, _ := regionlock.Normalize(region, 0, fileSize)
	cmdutil.PrintSuccess(fmt.Sprintf("acquired %s lock on [%d,%d)", strings.ToUpper(lockType), held.Start, held.End()))

	if lockInteractive {
		return runInteractiveSession(h, region, fileSize)
	}

	if lockHold > 0 {
		time.Sleep(lockHold)
	}
	return nil
}

// runInteractiveSession reads newline-terminated commands from stdin
// while h holds region, releasing it early on "unlock". Any other line
// or EOF ends the session; the deferred Detach in runLock handles the
// final release.
func runInteractiveSession(h *regionlock.Handle, region regionlock.LockSpec, fileSize int64) error {
	fmt.Fprintln(os.Stdout, "holding lock; type 'unlock' to release early, anything else to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "unlock" {
			return nil
		}
		unlockSpec := regionlock.LockSpec{Op: regionlock.OpUnlock, Start: region.Start, Len: region.Len}
		if err := regionlock.Request(h, regionlock.ModeNonBlocking, unlockSpec, 0, fileSize); err != nil {
			return fmt.Errorf("unlock: %w", err)
		}
		cmdutil.PrintSuccess("released")
		return nil
	}
	return scanner.Err()
}
