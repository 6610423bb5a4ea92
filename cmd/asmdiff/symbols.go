package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var symbolsFlags struct {
	exe, debug, config string
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "Dump the merged symbol store (binary exports + debug records)",
	RunE:  runSymbols,
}

func init() {
	fs := symbolsCmd.Flags()
	fs.StringVar(&symbolsFlags.exe, "exe", "", "path to the PE image (required)")
	fs.StringVar(&symbolsFlags.debug, "debug", "", "debug-data sidecar JSON")
	fs.StringVar(&symbolsFlags.config, "config", "", "diffconfig override JSON")

	symbolsCmd.MarkFlagRequired("exe")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	img, err := loadImage(symbolsFlags.exe, symbolsFlags.debug, symbolsFlags.config)
	if err != nil {
		return err
	}

	for _, sym := range img.Store.All() {
		fmt.Printf("%08x  %-40s size=%d\n", sym.Address, sym.Name, sym.Size)
	}
	return nil
}
