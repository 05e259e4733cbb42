// Package main - офлайн-утилита для построения зон объезда вокруг отчётов.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avoidzones",
		Short: "Build walking-route avoid zones around obstacle reports",
		Long: `avoidzones approximates a circle around each reported obstacle and prints
the result as a GeoJSON geometry, the same way the API sends avoid_polygons
to openrouteservice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("format", "f", formatJSON, "Output format: json or yaml")

	cmd.AddCommand(NewCircleCmd())
	cmd.AddCommand(NewBuildCmd())

	return cmd
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// writeOutput печатает GeoJSON в выбранном формате
func writeOutput(cmd *cobra.Command, geometryJSON []byte) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	return encode(cmd.OutOrStdout(), strings.ToLower(format), geometryJSON)
}

func encode(w io.Writer, format string, geometryJSON []byte) error {
	switch format {
	case formatJSON:
		var pretty interface{}
		if err := json.Unmarshal(geometryJSON, &pretty); err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pretty)

	case formatYAML:
		var doc interface{}
		if err := json.Unmarshal(geometryJSON, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()

	default:
		return fmt.Errorf("unknown format %q: expected json or yaml", format)
	}
}
