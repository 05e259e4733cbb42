package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/accessibility-reports/internal/pkg/geo"
)

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a MultiPolygon from a reports file",
		Long: `Build avoid zones from a JSON file with reports.

The input is either an array of reports or the {"reports": [...]} object
returned by GET /reports. Latitude and longitude may be numbers or strings.
Reports without usable coordinates are skipped with a warning on stderr.
When nothing is left the output is null.

Examples:
  curl -s localhost:8000/reports > reports.json
  avoidzones build --input reports.json --radius 30

  # read from stdin
  cat reports.json | avoidzones build -i - -f yaml`,
		Args: cobra.NoArgs,
		RunE: runBuildCmd,
	}

	cmd.Flags().StringP("input", "i", "-", "Reports JSON file, - for stdin")
	cmd.Flags().Float64P("radius", "r", geo.DefaultAvoidRadius, "Zone radius in meters")

	return cmd
}

func runBuildCmd(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	radius, _ := cmd.Flags().GetFloat64("radius")

	data, err := readInput(cmd, input)
	if err != nil {
		return err
	}

	locations, err := parseLocations(data)
	if err != nil {
		return err
	}

	zones, skipped, err := geo.BuildAvoidZones(locations, radius)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipping %v\n", s)
	}

	if zones == nil {
		return writeOutput(cmd, []byte("null"))
	}
	if err := geo.ValidateAvoidZones(zones); err != nil {
		return err
	}

	raw, err := geo.EncodeAvoidZones(zones)
	if err != nil {
		return err
	}
	return writeOutput(cmd, raw)
}

func readInput(cmd *cobra.Command, input string) ([]byte, error) {
	if input == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// parseLocations принимает [...] или {"reports": [...]}
func parseLocations(data []byte) ([]geo.RawLocation, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("input is empty")
	}

	var locations []geo.RawLocation
	if data[0] == '[' {
		if err := json.Unmarshal(data, &locations); err != nil {
			return nil, fmt.Errorf("failed to parse reports: %w", err)
		}
		return locations, nil
	}

	var wrapped struct {
		Reports []geo.RawLocation `json:"reports"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse reports: %w", err)
	}
	return wrapped.Reports, nil
}
