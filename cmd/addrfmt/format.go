package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/CTAG07/Addressline/pkg/addressing"
	"github.com/CTAG07/Addressline/pkg/formatter"
	"github.com/CTAG07/Addressline/pkg/templating"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newFormatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format [flags]",
		Short: "Format one address from flags, or a YAML list of addresses with --file",
		Args:  cobra.NoArgs,
		RunE:  runFormat,
	}
	cmd.Flags().String("locale", "", "locale of the address value, selects the local format")
	for _, f := range addressing.AllFields() {
		cmd.Flags().String(flagName(f), "", f.Label())
	}
	cmd.Flags().String("file", "", "YAML file with a list of addresses")
	cmd.Flags().String("delimiter", ", ", "delimiter joining the display lines")
	cmd.Flags().StringSlice("property", nil, "field to display, repeatable (default all)")
	cmd.Flags().Bool("visible-unlisted", false, "keep fields outside the display options while filtering")
	cmd.Flags().String("output", "inline", "output mode (inline|lines|json|html)")
	cmd.Flags().Bool("block", false, "render the block template with --output html")
	cmd.Flags().String("data-dir", "", "directory whose templates/ overrides the embedded templates")
	return cmd
}

// flagName maps a field to its flag, e.g. address-line1.
func flagName(f addressing.Field) string {
	return strings.ReplaceAll(f.Key(), "_", "-")
}

func settingsFromFlags(cmd *cobra.Command) (formatter.Settings, error) {
	settings := formatter.DefaultSettings()
	var err error
	if settings.Delimiter, err = cmd.Flags().GetString("delimiter"); err != nil {
		return settings, err
	}
	props, err := cmd.Flags().GetStringSlice("property")
	if err != nil {
		return settings, err
	}
	for _, p := range props {
		f, err := addressing.ParseField(strings.TrimSpace(p))
		if err != nil {
			return settings, err
		}
		settings.Properties = append(settings.Properties, f)
	}
	if visible, _ := cmd.Flags().GetBool("visible-unlisted"); visible {
		settings.UnlistedFields = formatter.UnlistedVisible
	}
	return settings, settings.Validate()
}

func addressesFromFlags(cmd *cobra.Command) ([]addressing.Address, error) {
	path, err := cmd.Flags().GetString("file")
	if err != nil {
		return nil, err
	}
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()
		var addrs []addressing.Address
		if err = yaml.NewDecoder(file).Decode(&addrs); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return addrs, nil
	}

	var addr addressing.Address
	if addr.Locale, err = cmd.Flags().GetString("locale"); err != nil {
		return nil, err
	}
	for _, f := range addressing.AllFields() {
		value, err := cmd.Flags().GetString(flagName(f))
		if err != nil {
			return nil, err
		}
		addr.Set(f, value)
	}
	if addr.CountryCode == "" {
		return nil, fmt.Errorf("format: --country or --file is required")
	}
	return []addressing.Address{addr}, nil
}

func runFormat(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	logger := commandLogger(cmd)

	settings, err := settingsFromFlags(cmd)
	if err != nil {
		return err
	}
	addrs, err := addressesFromFlags(cmd)
	if err != nil {
		return err
	}
	lang, err := cmd.Root().PersistentFlags().GetString("lang")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	_, formats, err := loadFormats(cmd, logger)
	if err != nil {
		return err
	}
	f, err := formatter.New(formats, addressing.NewCountryRepository(), settings)
	if err != nil {
		return err
	}
	elements, err := f.FormatAll(addrs, lang)
	if err != nil {
		return err
	}
	logger.Debug("Formatted addresses", "count", len(elements), "summary", settings.Summary())

	out := cmd.OutOrStdout()
	switch output {
	case "inline":
		for _, el := range elements {
			_, _ = fmt.Fprintln(out, el.Inline())
		}
	case "lines":
		for i, el := range elements {
			if i > 0 {
				_, _ = fmt.Fprintln(out)
			}
			for _, item := range el.Items {
				_, _ = fmt.Fprintln(out, item)
			}
		}
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(elements)
	case "html":
		dataDir, _ := cmd.Flags().GetString("data-dir")
		tm, err := templating.NewTemplateManager(logger, templating.DefaultConfig(), dataDir)
		if err != nil {
			return err
		}
		display := templating.DisplayInline
		if block, _ := cmd.Flags().GetBool("block"); block {
			display = templating.DisplayBlock
		}
		for _, el := range elements {
			if err = tm.Render(out, el, display); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out)
		}
	default:
		return fmt.Errorf("format: unknown output mode %q", output)
	}
	return nil
}
