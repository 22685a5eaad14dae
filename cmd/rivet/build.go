package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rivetvm/rivet"
	"github.com/rivetvm/rivet/compiler"
	"github.com/rivetvm/rivet/graph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type buildOptions struct {
	output     string
	configPath string
	verbose    bool
}

func newBuildCommand() *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build <graph.json>",
		Short: "Compile a graph document to a bytecode program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: input with .rvp extension)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "TOML file with compiler settings")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log compilation passes")
	return cmd
}

func runBuild(inputPath string, opts *buildOptions) error {
	settings := compiler.DefaultSettings()
	if opts.configPath != "" {
		if _, err := toml.DecodeFile(opts.configPath, &settings); err != nil {
			return fmt.Errorf("failed to read settings from %s: %w", opts.configPath, err)
		}
	}

	g, err := graph.LoadFile(inputPath)
	if err != nil {
		return err
	}

	compileOpts := []rivet.Option{rivet.WithSettings(settings)}
	if opts.verbose {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
		compileOpts = append(compileOpts, rivet.WithLogger(logger))
	}

	program, err := rivet.Compile(g, compileOpts...)
	if err != nil {
		return err
	}
	data, err := program.Marshal()
	if err != nil {
		return err
	}

	outputPath := opts.output
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, ".json") + ".rvp"
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return err
	}
	count, err := program.Code().InstructionCount()
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d instructions, %d bytes)\n", outputPath, count, len(data))
	return nil
}
