package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"strand/internal/vm"
)

var (
	dumpEncoding string
	dumpOut      string
	dumpTrace    string
)

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "Build strings from an input file and dump the resulting heap",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpEncoding, "encoding", "utf8", "input encoding (utf8|utf16le|utf16be)")
	dumpCmd.Flags().StringVar(&dumpOut, "out", "", "write a msgpack heap snapshot to this path")
	dumpCmd.Flags().StringVar(&dumpTrace, "trace", "", "write JSON-lines heap events to this path")
}

func runDump(cmd *cobra.Command, args []string) error {
	mode, _ := cmd.Flags().GetString("color")
	applyColorMode(mode, os.Stdout)

	limits, err := loadLimits(cmd)
	if err != nil {
		return err
	}
	rt, rerr := vm.NewRuntime(limits)
	if rerr != nil {
		return rerr
	}

	if dumpTrace != "" {
		traceFile, err := os.Create(dumpTrace)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		defer traceFile.Close()
		rt.Heap.SetTracer(vm.NewJSONTracer(traceFile))
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	text, err := decodeInput(data, dumpEncoding)
	if err != nil {
		return err
	}

	// Every word stays rooted so the dump shows the whole population;
	// interning deduplicates repeats into uniqued strings.
	for _, word := range strings.Fields(text) {
		h, rerr := vm.CreateFromUTF8(rt, word)
		if rerr != nil {
			return rerr
		}
		rt.PushRoot(h)
		if _, _, rerr := rt.Intern(h); rerr != nil {
			return rerr
		}
	}
	rt.Collect()

	if dump := rt.Heap.DumpString(); dump != "" {
		fmt.Print(dump)
	}

	if dumpOut != "" {
		outFile, err := os.Create(dumpOut)
		if err != nil {
			return fmt.Errorf("failed to create snapshot file: %w", err)
		}
		defer outFile.Close()
		if err := rt.Heap.Snapshot().WriteTo(outFile); err != nil {
			return err
		}
	}
	return nil
}
