package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cxxsema/internal/scipexport"
)

var exportCmd = &cobra.Command{
	Use:   "export [flags] <file|dir>...",
	Short: "Write a SCIP index of the analyzed files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExport,
}

var (
	exportOutput string
	exportRoot   string
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "index.scip", "index file to write")
	exportCmd.Flags().StringVar(&exportRoot, "project-root", "", "root documents are relative to (default: directory of cxxsema.toml, else the working directory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	results, err := analyzePaths(cmd, args, false)
	if err != nil {
		return err
	}
	reportDiagnostics(cmd, results)

	root := exportRoot
	if root == "" && state.file != nil {
		root = state.file.Root
	}
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return err
		}
	}
	index, err := scipexport.Build(results, scipexport.Options{
		ProjectRoot: root,
		Arguments:   os.Args[1:],
	})
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := scipexport.WriteFile(exportOutput, index); err != nil {
		return fmt.Errorf("write %s: %w", exportOutput, err)
	}
	if !state.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d documents to %s\n", len(index.Documents), exportOutput)
	}
	return nil
}
