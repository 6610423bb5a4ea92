package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"asmdiff/internal/align"
	"asmdiff/internal/asmfunc"
	"asmdiff/internal/dbgrecords"
	"asmdiff/internal/report"
)

var compareFlags struct {
	exeA, exeB       string
	debugA, debugB   string
	configA, configB string
	beginA, endA     string
	beginB, endB     string
	strictness       string
	lookahead        int
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Align and compare one function across two related binaries",
	RunE:  runCompare,
}

func init() {
	fs := compareCmd.Flags()
	fs.StringVar(&compareFlags.exeA, "a", "", "path to the first PE image (required)")
	fs.StringVar(&compareFlags.exeB, "b", "", "path to the second PE image (required)")
	fs.StringVar(&compareFlags.debugA, "a-debug", "", "debug-data sidecar JSON for the first image")
	fs.StringVar(&compareFlags.debugB, "b-debug", "", "debug-data sidecar JSON for the second image")
	fs.StringVar(&compareFlags.configA, "a-config", "", "diffconfig override JSON for the first image")
	fs.StringVar(&compareFlags.configB, "b-config", "", "diffconfig override JSON for the second image")
	fs.StringVar(&compareFlags.beginA, "begin-a", "", "start address of the function in the first image (required)")
	fs.StringVar(&compareFlags.endA, "end-a", "", "end address of the function in the first image (required)")
	fs.StringVar(&compareFlags.beginB, "begin-b", "", "start address of the function in the second image (required)")
	fs.StringVar(&compareFlags.endB, "end-b", "", "end address of the function in the second image (required)")
	fs.StringVar(&compareFlags.strictness, "strictness", "undecided", "lenient|undecided|strict")
	fs.IntVar(&compareFlags.lookahead, "lookahead", align.DefaultLookahead, "bounded lookahead budget per side")

	compareCmd.MarkFlagRequired("a")
	compareCmd.MarkFlagRequired("b")
	compareCmd.MarkFlagRequired("begin-a")
	compareCmd.MarkFlagRequired("end-a")
	compareCmd.MarkFlagRequired("begin-b")
	compareCmd.MarkFlagRequired("end-b")
}

func runCompare(cmd *cobra.Command, args []string) error {
	strictness, err := parseStrictness(compareFlags.strictness)
	if err != nil {
		return err
	}

	fnA, err := disassembleRange(compareFlags.exeA, compareFlags.debugA, compareFlags.configA, compareFlags.beginA, compareFlags.endA)
	if err != nil {
		return fmt.Errorf("side a: %w", err)
	}
	fnB, err := disassembleRange(compareFlags.exeB, compareFlags.debugB, compareFlags.configB, compareFlags.beginB, compareFlags.endB)
	if err != nil {
		return fmt.Errorf("side b: %w", err)
	}

	result := align.Align(fnA.Instructions, fnB.Instructions, compareFlags.lookahead)
	names := [2]string{compareFlags.exeA, compareFlags.exeB}
	fmt.Println(report.Render(result, names, strictness))
	return nil
}

// disassembleRange loads one image and disassembles [begin, end), attaching
// source lines when the debug document names a matching function record.
func disassembleRange(exePath, debugPath, configPath, beginStr, endStr string) (*asmfunc.Function, error) {
	img, err := loadImage(exePath, debugPath, configPath)
	if err != nil {
		return nil, err
	}
	begin, err := parseAddress(beginStr)
	if err != nil {
		return nil, err
	}
	end, err := parseAddress(endStr)
	if err != nil {
		return nil, err
	}

	fn, err := asmfunc.New(img.Exe, img.Store).Disassemble(begin, end)
	if err != nil {
		return nil, fmt.Errorf("disassemble 0x%x-0x%x: %w", begin, end, err)
	}

	if img.Debug != nil {
		beginRVA, endRVA := begin-img.Exe.ImageBase(), end-img.Exe.ImageBase()
		if rec, ok := img.Debug.FindFunction(beginRVA, endRVA); ok {
			asmfunc.AttachSourceLines(fn, rec.SourceFileName, dbgrecords.SourceLines(rec))
		}
	}

	return fn, nil
}

func parseStrictness(s string) (align.Strictness, error) {
	switch s {
	case "lenient":
		return align.Lenient, nil
	case "undecided", "":
		return align.Undecided, nil
	case "strict":
		return align.Strict, nil
	default:
		return 0, fmt.Errorf("unknown strictness %q: want lenient, undecided, or strict", s)
	}
}
