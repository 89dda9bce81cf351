package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"strand/internal/config"
	"strand/internal/vm"
)

var (
	benchCount    int
	benchRuntimes int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a synthetic string workload and report heap statistics",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchCount, "count", 10000, "iterations per runtime")
	benchCmd.Flags().IntVar(&benchRuntimes, "runtimes", 1, "independent runtimes to run concurrently")
}

// benchWords seed the workload; a few carry units outside the narrow
// range so wide and mixed-encoding paths get exercised.
var benchWords = []string{
	"alloc", "borrow", "cell", "débris", "external", "flatten",
	"garbage", "handle", "intern", "ledger", "λambda", "narrow",
	"opaque", "payload", "quota", "résumé", "sweep", "tenured",
	"unit", "文字列",
}

func runBench(cmd *cobra.Command, args []string) error {
	mode, _ := cmd.Flags().GetString("color")
	applyColorMode(mode, os.Stdout)

	limits, err := loadLimits(cmd)
	if err != nil {
		return err
	}

	results := make([]vm.HeapStats, benchRuntimes)
	durations := make([]time.Duration, benchRuntimes)

	// Each runtime is single-threaded; independent runtimes may run
	// concurrently because they share no heap state.
	var g errgroup.Group
	for i := 0; i < benchRuntimes; i++ {
		i := i
		g.Go(func() error {
			start := time.Now()
			stats, err := runWorkload(limits, benchCount)
			if err != nil {
				return err
			}
			results[i] = stats
			durations[i] = time.Since(start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	head := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	head.Printf("strand bench: %d iterations x %d runtimes\n", benchCount, benchRuntimes)
	for i, stats := range results {
		ok.Printf("runtime %d: %s\n", i, durations[i].Round(time.Microsecond))
		fmt.Printf("  live=%d used=%d external=%d\n", stats.LiveCells, stats.UsedBytes, stats.ExternalBytes)
		fmt.Printf("  allocs=%d frees=%d collections=%d credits=%d debits=%d\n",
			stats.AllocCount, stats.FreeCount, stats.Collections,
			stats.ExternalCredits, stats.ExternalDebits)
	}
	return nil
}

// runWorkload drives one runtime through create/concat/slice/intern
// cycles, letting most results become garbage so collections happen
// naturally.
func runWorkload(limits config.Limits, iterations int) (vm.HeapStats, error) {
	rt, rerr := vm.NewRuntime(limits)
	if rerr != nil {
		return vm.HeapStats{}, rerr
	}

	for i := 0; i < iterations; i++ {
		left, err := vm.CreateFromUTF8(rt, benchWords[i%len(benchWords)])
		if err != nil {
			return vm.HeapStats{}, err
		}
		rt.PushRoot(left)

		right, err := vm.CreateFromUTF8(rt, benchWords[(i+7)%len(benchWords)])
		if err != nil {
			return vm.HeapStats{}, err
		}
		rt.PushRoot(right)

		joined, err := vm.Concat(rt, left, right)
		if err != nil {
			return vm.HeapStats{}, err
		}
		rt.PushRoot(joined)

		leftLen := vm.CreateView(rt, left).Length()
		if _, err := vm.Slice(rt, joined, 0, leftLen); err != nil {
			return vm.HeapStats{}, err
		}

		if i%16 == 0 {
			if _, _, err := rt.Intern(joined); err != nil {
				return vm.HeapStats{}, err
			}
		}
		if i%32 == 0 {
			// A long payload takes the external ownership-transfer path.
			long := []byte(strings.Repeat("payload", 32))
			if _, err := vm.CreateEfficientNarrowOwned(rt, &long); err != nil {
				return vm.HeapStats{}, err
			}
		}

		rt.PopRoots(3)
	}

	rt.Collect()
	return rt.Heap.Stats(), nil
}
