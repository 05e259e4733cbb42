package main

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/accessibility-reports/internal/pkg/geo"
)

// NewCircleCmd creates the circle command.
func NewCircleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "circle",
		Short: "Print one circle polygon around a point",
		Long: `Print a closed polygon approximating a circle of the given radius.

Examples:
  # 30 m circle in Bucharest, 16 segments
  avoidzones circle --lat 44.4432 --lon 26.0931

  # 4 segments, YAML output
  avoidzones circle --lat 44.4432 --lon 26.0931 --radius 50 --points 4 -f yaml`,
		Args: cobra.NoArgs,
		RunE: runCircleCmd,
	}

	cmd.Flags().Float64("lat", 0, "Center latitude")
	cmd.Flags().Float64("lon", 0, "Center longitude")
	cmd.Flags().Float64P("radius", "r", geo.DefaultAvoidRadius, "Radius in meters")
	cmd.Flags().IntP("points", "p", geo.DefaultCirclePoints, "Number of segments")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")

	return cmd
}

func runCircleCmd(cmd *cobra.Command, _ []string) error {
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	radius, _ := cmd.Flags().GetFloat64("radius")
	points, _ := cmd.Flags().GetInt("points")

	ring, err := geo.CircleToPolygon(lat, lon, radius, points)
	if err != nil {
		return err
	}

	raw, err := geojson.NewGeometry(orb.Polygon{ring}).MarshalJSON()
	if err != nil {
		return err
	}
	return writeOutput(cmd, raw)
}
