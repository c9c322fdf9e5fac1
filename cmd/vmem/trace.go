package main

import (
	"context"
	"fmt"
	"log"

	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/polyarch/vmem/datarecording"
	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/paging"
	"github.com/polyarch/vmem/mem/pte"
	"github.com/polyarch/vmem/mem/vmspace"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Run a paging workload and record its events into SQLite.",
	Run: func(cmd *cobra.Command, _ []string) {
		arch, _ := cmd.Flags().GetString("arch")
		out, _ := cmd.Flags().GetString("out")

		if err := runTrace(arch, out); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)

	traceCmd.Flags().String("arch", envOr("VMEM_ARCH", "sv39"),
		"Page table architecture, sv39 or la64")
	traceCmd.Flags().String("out", envOr("VMEM_TRACE_DB", ""),
		"Trace database name, without the .sqlite3 suffix")
}

func runTrace(arch, out string) error {
	alloc := buildAllocator(1024)
	core := paging.NewCore(0, nil)

	factory, err := newTableFactory(arch, alloc, core)
	if err != nil {
		return err
	}

	if out == "" {
		out = "vmem_trace_" + xid.New().String()
	}
	recorder := datarecording.NewPagingRecorder(datarecording.New(out))

	space, err := vmspace.MakeBuilder().
		WithTableFactory(factory).
		WithAllocator(alloc).
		WithTracer(recorder).
		Build()
	if err != nil {
		return err
	}
	defer space.Release()

	if err := runTraceWorkload(space); err != nil {
		return err
	}

	recorder.Flush()

	return reportEventCount(out+".sqlite3", space.ID())
}

func runTraceWorkload(space *vmspace.MemorySpace) error {
	base, err := space.Mmap(0, 8*addr.PageSize, pte.UserRW())
	if err != nil {
		return err
	}

	if _, err := space.Brk(space.CurrentBrk().Add(4 * addr.PageSize)); err != nil {
		return err
	}

	child, err := space.CloneForFork()
	if err != nil {
		return err
	}
	child.Release()

	return space.Munmap(base, 8*addr.PageSize)
}

func reportEventCount(dbFilename, spaceID string) error {
	reader := datarecording.NewReader(dbFilename)
	defer reader.Close()
	reader.MapTable(datarecording.PagingEventTable, vmspace.Event{})

	_, total, err := reader.Query(
		context.Background(), datarecording.PagingEventTable,
		datarecording.QueryParams{
			Where: "SpaceID = ?",
			Args:  []any{spaceID},
		})
	if err != nil {
		return err
	}

	fmt.Printf("recorded %d events for space %s\n", total, spaceID)

	return nil
}
