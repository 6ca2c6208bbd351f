package main

import (
	"fmt"
	"os"

	"github.com/CTAG07/Addressline/pkg/addressing"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Store the format definitions of a YAML file as overrides in --db",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	logger := commandLogger(cmd)

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	defs, err := addressing.ParseDefinitions(file)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return fmt.Errorf("import: %s holds no format definitions", args[0])
	}

	store, closer, err := openStore(cmd, logger)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("import: --db is required")
	}
	defer func() { _ = closer.Close() }()

	if err = store.PutAll(cmd.Context(), defs); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d format definitions\n", len(defs))
	return nil
}
