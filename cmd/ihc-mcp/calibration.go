package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

func calibrationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calibration",
		Short: "Print the active calibration as config-file YAML",
		Long: `Print the calibration resolved from defaults, config file, IHC_* environment
variables and flags. The output can be pasted into a config file.

Hue is on the 0-179 scale (degrees / 2); saturation and value on 0-255.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := marshalCalibration(settings.Calibration)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// marshalCalibration renders cal under a top-level calibration key, the layout
// config.ReadFile expects.
func marshalCalibration(cal ihc.Calibration) ([]byte, error) {
	out, err := yaml.Marshal(map[string]ihc.Calibration{"calibration": cal})
	if err != nil {
		return nil, fmt.Errorf("failed to encode calibration: %w", err)
	}
	return out, nil
}
