package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"parallax/internal/config"
	"parallax/internal/pairscan"
	"parallax/internal/pipeline"
	"parallax/internal/services"
	"parallax/internal/workflow"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var (
		outputFlag     string
		verticalFlag   int
		horizontalFlag int
		lensFlag       string
		widthFlag      int
		heightFlag     int
		toleranceFlag  int
		layoutFlag     string
		audioFlag      string
		overwriteFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "merge <left> <right>",
		Short: "Merge a left/right capture pair into a side-by-side master",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg = applyMergeOverrides(cfg, cmd, mergeOverrides{
				vertical:   verticalFlag,
				horizontal: horizontalFlag,
				lens:       lensFlag,
				width:      widthFlag,
				height:     heightFlag,
				tolerance:  toleranceFlag,
				layout:     layoutFlag,
				audio:      audioFlag,
			})
			if err := cfg.Validate(); err != nil {
				return err
			}

			left, right := args[0], args[1]
			output := strings.TrimSpace(outputFlag)
			if output == "" {
				output = defaultMergeOutput(cfg, left)
			}
			if pairscan.ShouldSkip(output, overwriteFlag) {
				return services.Wrap(services.ErrValidation, "merge", "output",
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
			outcome, err := pipe.RunMerge(cmd.Context(), pipeline.MergeRequest{
				LeftPath:   left,
				RightPath:  right,
				OutputPath: output,
			})
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), outcome)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file path (derived from the left source by default)")
	cmd.Flags().IntVar(&verticalFlag, "vertical-error", 0, "Vertical mounting error in pixels (positive raises the right eye)")
	cmd.Flags().IntVar(&horizontalFlag, "horizontal-error", 0, "Horizontal mounting error in pixels (positive shifts the right eye left)")
	cmd.Flags().StringVar(&lensFlag, "lens", "", "Lens correction mode (unadjusted or rectilinear)")
	cmd.Flags().IntVar(&widthFlag, "width", 0, "Per-eye output width in pixels")
	cmd.Flags().IntVar(&heightFlag, "height", 0, "Per-eye output height in pixels")
	cmd.Flags().IntVar(&toleranceFlag, "tolerance", 0, "Pairing tolerance in milliseconds")
	cmd.Flags().StringVar(&layoutFlag, "layout", "", "Composite layout (horizontal or vertical)")
	cmd.Flags().StringVar(&audioFlag, "audio", "", "Audio handling (copy, merge, or none)")
	cmd.Flags().BoolVar(&overwriteFlag, "overwrite", false, "Replace an existing output file")
	return cmd
}

type mergeOverrides struct {
	vertical   int
	horizontal int
	lens       string
	width      int
	height     int
	tolerance  int
	layout     string
	audio      string
}

// applyMergeOverrides layers explicit flags over the loaded configuration.
// The caller's config is left untouched so later commands in the same
// process see the file values.
func applyMergeOverrides(cfg *config.Config, cmd *cobra.Command, o mergeOverrides) *config.Config {
	clone := *cfg
	if cmd.Flags().Changed("vertical-error") {
		clone.Rig.VerticalErrorPixels = o.vertical
	}
	if cmd.Flags().Changed("horizontal-error") {
		clone.Rig.HorizontalErrorPixels = o.horizontal
	}
	if o.lens != "" {
		clone.Lens.Correction = o.lens
	}
	if o.width > 0 {
		clone.Output.Width = o.width
	}
	if o.height > 0 {
		clone.Output.Height = o.height
	}
	if o.tolerance > 0 {
		clone.Sync.ToleranceMillis = o.tolerance
	}
	if o.layout != "" {
		clone.Output.Layout = o.layout
	}
	if o.audio != "" {
		clone.Engine.AudioMode = o.audio
	}
	return &clone
}

// defaultMergeOutput derives the output path from the left source filename,
// next to the sources. A recognizable eye marker yields the shared pair
// stem; anything else keeps the full stem.
func defaultMergeOutput(cfg *config.Config, left string) string {
	dir := filepath.Dir(left)
	tag := workflow.MergeTag(cfg)
	result, err := pairscan.Scan(dir, cfg.Batch.Extensions)
	if err == nil {
		for _, pair := range result.Pairs {
			if pair.LeftPath == left {
				return pair.OutputPath(dir, tag)
			}
		}
	}
	return pairscan.TaggedOutputPath(left, dir, tag)
}
