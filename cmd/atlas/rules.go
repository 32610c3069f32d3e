package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joeblew999/fra-atlas/internal/geo"
	"github.com/joeblew999/fra-atlas/internal/rules"
	"github.com/joeblew999/fra-atlas/internal/service"
)

// readLayer loads a GeoJSON file as a smart-rules input.
func readLayer(path string) (*rules.Input, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := geo.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &rules.Input{Name: service.LayerName(filepath.Base(path)), Data: data}, nil
}

func landUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "landuse FILE",
		Short: "Summarize the land-use categories of a GeoJSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readLayer(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rules.Summarize(in).Text())
			return nil
		},
	}
}

func changesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "changes PRIMARY SECONDARY",
		Short: "Compare two GeoJSON files feature by feature",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			primary, err := readLayer(args[0])
			if err != nil {
				return err
			}
			secondary, err := readLayer(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rules.DetectChanges(primary, secondary).Text())
			return nil
		},
	}
}
