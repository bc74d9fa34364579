package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/marmos91/regionlock/cmd/rlockctl/cmdutil"
	"github.com/marmos91/regionlock/internal/cli/output"
	"github.com/marmos91/regionlock/internal/cli/timeutil"
	"github.com/marmos91/regionlock/internal/logger"
	"github.com/marmos91/regionlock/pkg/regionlock"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Dump the active lock records for a file's shared segment",
	Long: `Attach to the shared segment for <file>, sweep any owners whose
process has died, and print the records that remain: their region,
type, and owning (pid, descriptor) pairs.

Attaching and detaching to inspect briefly touches the segment's
reference count but never changes which records are active.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

// inspectView renders a Snapshot's active records as a table.
type inspectView struct {
	snap      regionlock.Snapshot
	inspected time.Time
}

func (v inspectView) Headers() []string {
	return []string{"REGION", "TYPE", "OWNERS"}
}

func (v inspectView) Rows() [][]string {
	rows := make([][]string, 0, len(v.snap.Records))
	for _, rec := range v.snap.Records {
		owners := ""
		for i, o := range rec.Owners {
			if i > 0 {
				owners += ", "
			}
			owners += fmt.Sprintf("(pid=%d fd=%d)", o.PID, o.Descriptor)
		}
		rows = append(rows, []string{
			fmt.Sprintf("[%d,%d)", rec.Region.Start, rec.Region.End()),
			rec.Type.String(),
			owners,
		})
	}
	return rows
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]

	h, err := regionlock.Attach(path)
	if err != nil {
		return fmt.Errorf("attach %s: %w", path, err)
	}
	defer regionlock.Detach(h)

	logger.InfoCtx(cmd.Context(), "inspecting segment", logger.PID(int(h.PID)), logger.Descriptor(int(h.Descriptor)))
	snap, err := regionlock.Inspect(h)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	view := inspectView{snap: snap, inspected: time.Now()}
	if err := cmdutil.PrintResource(os.Stdout, snap, view); err != nil {
		return err
	}

	format, _ := cmdutil.GetOutputFormatParsed()
	if format == output.FormatTable {
		fmt.Printf("blocked waiters: %d, ref count: %d, as of %s\n",
			snap.BlockedCount, snap.RefCount, timeutil.FormatLocal(view.inspected))
	}
	return nil
}
