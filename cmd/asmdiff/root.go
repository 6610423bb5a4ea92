package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "asmdiff",
	Short: "Differential disassembler for 32-bit x86 binaries",
	Long: `asmdiff disassembles matched functions from two related 32-bit x86
binaries, aligns their instruction streams, and reports a symbol-aware,
per-instruction match/mismatch classification plus an aggregate similarity
score.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(compareCmd, disasmCmd, symbolsCmd)
}
