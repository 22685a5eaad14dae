package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/rivetvm/rivet"
	"github.com/rivetvm/rivet/dis"
	"github.com/spf13/cobra"
)

func newDisCommand() *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "dis <program.rvp>",
		Short: "Disassemble a compiled program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			program, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			instructions, err := dis.Disassemble(program.Code())
			if err != nil {
				return err
			}
			dis.Print(instructions, os.Stdout)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	return cmd
}

func loadProgram(path string) (*rivet.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return rivet.UnmarshalProgram(data)
}
