package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <program.rvp>",
		Short: "Print a plain-text listing of a compiled program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			text, err := program.Code().DumpToText()
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
}
