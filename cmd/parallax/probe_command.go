package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parallax/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file with ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := ffprobe.Inspect(cmd.Context(), cfg.Engine.FFprobeBinary, args[0])
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Container", result.Format.FormatName},
				{"Duration", result.Format.Duration},
			}
			if stream, ok := result.VideoStream(); ok {
				width, height := result.Dimensions()
				rows = append(rows,
					[]string{"Video codec", stream.CodecName},
					[]string{"Pixel format", stream.PixFmt},
					[]string{"Resolution", fmt.Sprintf("%dx%d", width, height)},
					[]string{"Frame rate", fmt.Sprintf("%.3f fps", result.FrameRate())},
				)
				if frames := result.FrameCount(); frames > 0 {
					rows = append(rows, []string{"Frames", fmt.Sprintf("%d", frames)})
				}
			}
			rows = append(rows,
				[]string{"Video streams", fmt.Sprintf("%d", result.VideoStreamCount())},
				[]string{"Audio streams", fmt.Sprintf("%d", result.AudioStreamCount())},
			)

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Property", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
