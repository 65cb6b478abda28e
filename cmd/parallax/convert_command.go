package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"parallax/internal/pairscan"
	"parallax/internal/pipeline"
	"parallax/internal/services"
	"parallax/internal/transcode"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		outputFlag    string
		formatFlag    string
		mappingFlag   string
		parityFlag    string
		gapFlag       int
		overwriteFlag bool
	)

	cmd := &cobra.Command{
		Use:   "convert <side-by-side>",
		Short: "Convert a side-by-side master into a viewing format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			spec, err := cfg.FormatSpec(formatFlag)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "convert", "format", formatFlag, err)
			}
			if mappingFlag != "" {
				mapping, err := transcode.ParseMapping(mappingFlag)
				if err != nil {
					return services.Wrap(services.ErrConfiguration, "convert", "mapping", mappingFlag, err)
				}
				spec.Mapping = mapping
			}
			if parityFlag != "" {
				parity, err := transcode.ParseParity(parityFlag)
				if err != nil {
					return services.Wrap(services.ErrConfiguration, "convert", "parity", parityFlag, err)
				}
				spec.Parity = parity
			}
			if cmd.Flags().Changed("gap") {
				spec.CenterGap = gapFlag
			}
			spec = spec.Normalize()

			source := args[0]
			output := strings.TrimSpace(outputFlag)
			if output == "" {
				output = defaultConvertOutput(source, spec)
			}
			if pairscan.ShouldSkip(output, overwriteFlag) {
				return services.Wrap(services.ErrValidation, "convert", "output",
					fmt.Sprintf("%s already exists (use --overwrite to replace it)", output), nil)
			}

			eng, err := ctx.newEngine()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			pipe := pipeline.New(cfg, eng, logger)
			outcome, err := pipe.RunConvert(cmd.Context(), pipeline.ConvertRequest{
				SourcePath: source,
				OutputPath: output,
				Spec:       spec,
			})
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), outcome)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file path (derived from the source by default)")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Target format (anaglyph, interlaced, checkerboard, or stereoscope)")
	cmd.Flags().StringVar(&mappingFlag, "mapping", "", "Anaglyph color mapping")
	cmd.Flags().StringVar(&parityFlag, "parity", "", "Interlace row parity (left-even or right-even)")
	cmd.Flags().IntVar(&gapFlag, "gap", 0, "Stereoscope center gap in pixels")
	cmd.Flags().BoolVar(&overwriteFlag, "overwrite", false, "Replace an existing output file")
	return cmd
}

// defaultConvertOutput tags the source stem with the target format, next to
// the source. An existing merge tag is replaced so converted outputs read
// "Clip (Anaglyph).mp4" rather than "Clip (SbS) (Anaglyph).mp4".
func defaultConvertOutput(source string, spec transcode.FormatSpec) string {
	return pairscan.ConvertOutputPath(source, filepath.Dir(source), spec.OutputTag())
}
