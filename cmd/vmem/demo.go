package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/paging"
	"github.com/polyarch/vmem/mem/pte"
	"github.com/polyarch/vmem/mem/vmspace"
	"github.com/polyarch/vmem/monitoring"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Build a memory space and run an mmap/brk/fork workload.",
	Run: func(cmd *cobra.Command, _ []string) {
		arch, _ := cmd.Flags().GetString("arch")
		frames, _ := cmd.Flags().GetUint64("frames")
		monitorPort, _ := cmd.Flags().GetInt("monitor-port")

		if err := runDemo(arch, frames, monitorPort); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)

	defaultFrames, _ := strconv.ParseUint(
		envOr("VMEM_FRAMES", "1024"), 10, 64)

	demoCmd.Flags().String("arch", envOr("VMEM_ARCH", "sv39"),
		"Page table architecture, sv39 or la64")
	demoCmd.Flags().Uint64("frames", defaultFrames,
		"Number of physical frames to simulate")
	demoCmd.Flags().Int("monitor-port", 0,
		"Serve the monitoring API on this port, 0 disables it")
}

func runDemo(arch string, frames uint64, monitorPort int) error {
	alloc := buildAllocator(frames)
	core := paging.NewCore(0, nil)

	factory, err := newTableFactory(arch, alloc, core)
	if err != nil {
		return err
	}

	space, err := vmspace.MakeBuilder().
		WithTableFactory(factory).
		WithAllocator(alloc).
		Build()
	if err != nil {
		return err
	}
	defer space.Release()

	m := monitoring.NewMonitor()
	m.RegisterAllocator(alloc)
	m.RegisterSpace(space)
	if monitorPort > 0 {
		m.WithPortNumber(monitorPort)
		m.StartServer()
	}

	space.Activate()

	// One bar step per workload stage: mmap, brk, fork, munmap.
	bar := m.CreateProgressBar("demo workload", 4)
	defer m.CompleteProgressBar(bar)

	base, err := space.Mmap(0, 4*addr.PageSize, pte.UserRW())
	if err != nil {
		return err
	}
	bar.IncrementFinished(1)
	fmt.Printf("mmap:\t4 pages at %#x\n", uint64(base))

	msg := []byte("hello from the parent space")
	if err := space.WriteBytes(base, msg); err != nil {
		return err
	}

	newBrk, err := space.Brk(space.CurrentBrk().Add(2 * addr.PageSize))
	if err != nil {
		return err
	}
	bar.IncrementFinished(1)
	fmt.Printf("brk:\theap top now %#x\n", uint64(newBrk))

	child, err := space.CloneForFork()
	if err != nil {
		return err
	}
	defer child.Release()
	bar.IncrementFinished(1)

	buf := make([]byte, len(msg))
	if err := child.ReadBytes(base, buf); err != nil {
		return err
	}
	fmt.Printf("fork:\tchild %s reads %q\n", child.ID(), buf)

	if err := space.Munmap(base, 2*addr.PageSize); err != nil {
		return err
	}
	bar.IncrementFinished(1)

	fmt.Printf("\nparent space %s:\n", space.ID())
	printAreas(space)
	fmt.Printf("\nchild space %s:\n", child.ID())
	printAreas(child)

	fmt.Printf("\nframes: %d total, %d free\n", frames, alloc.FreeCount())

	return nil
}

func printAreas(s *vmspace.MemorySpace) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANGE\tTYPE\tMAPPING\tPERM\tPAGES")

	for _, info := range s.AreaInfos() {
		fmt.Fprintf(w, "%#x-%#x\t%s\t%s\t%s\t%d\n",
			uint64(info.Range.Start.StartAddr()),
			uint64(info.Range.End.StartAddr()),
			info.Type, info.MapType, info.Permission, info.MappedPages)
	}

	w.Flush()
}
