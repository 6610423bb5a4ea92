package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"asmdiff/internal/asmfunc"
)

var disasmFlags struct {
	exe, debug, config string
	begin, end         string
}

var disasmCmd = &cobra.Command{
	Use:   "disasm",
	Short: "Disassemble and print one function's labeled instruction stream",
	RunE:  runDisasm,
}

func init() {
	fs := disasmCmd.Flags()
	fs.StringVar(&disasmFlags.exe, "exe", "", "path to the PE image (required)")
	fs.StringVar(&disasmFlags.debug, "debug", "", "debug-data sidecar JSON")
	fs.StringVar(&disasmFlags.config, "config", "", "diffconfig override JSON")
	fs.StringVar(&disasmFlags.begin, "begin", "", "start address of the function (required)")
	fs.StringVar(&disasmFlags.end, "end", "", "end address of the function (required)")

	disasmCmd.MarkFlagRequired("exe")
	disasmCmd.MarkFlagRequired("begin")
	disasmCmd.MarkFlagRequired("end")
}

func runDisasm(cmd *cobra.Command, args []string) error {
	fn, err := disassembleRange(disasmFlags.exe, disasmFlags.debug, disasmFlags.config, disasmFlags.begin, disasmFlags.end)
	if err != nil {
		return err
	}

	for _, v := range fn.Instructions {
		switch v.Kind {
		case asmfunc.KindLabel:
			fmt.Printf("%s:\n", v.Label.Label)
		case asmfunc.KindInstruction:
			inst := v.Instruction
			if inst.IsInvalid {
				fmt.Printf("%08x  ; unrecognized opcode at address:%08x\n", inst.Address, inst.Address)
				continue
			}
			if inst.IsJump {
				fmt.Printf("%08x  %s ; %+d bytes\n", inst.Address, inst.Text, inst.JumpLen)
				continue
			}
			fmt.Printf("%08x  %s\n", inst.Address, inst.Text)
		}
	}
	return nil
}
