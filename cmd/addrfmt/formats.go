package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/CTAG07/Addressline/pkg/addressing"
	"github.com/spf13/cobra"
)

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats [country-code]",
		Short: "List countries with a dedicated format, or print one definition as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFormats,
	}
}

func runFormats(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	logger := commandLogger(cmd)

	base, overlay, err := loadFormats(cmd, logger)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		def, err := overlay.Get(args[0])
		if err != nil {
			return err
		}
		return addressing.WriteDefinitions(cmd.OutOrStdout(), []addressing.AddressFormat{def})
	}

	lang, err := cmd.Root().PersistentFlags().GetString("lang")
	if err != nil {
		return err
	}
	overridden := make(map[string]bool)
	codes := base.Codes()
	for _, code := range overlay.Overridden() {
		overridden[code] = true
		if !base.Has(code) {
			codes = append(codes, code)
		}
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, c := range addressing.NewCountryRepository().List(codes, lang) {
		marker := ""
		if overridden[c.Code] {
			marker = "override"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Code, c.Name, marker)
	}
	return tw.Flush()
}
