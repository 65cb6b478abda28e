package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parallax/internal/transcode"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "formats",
		Short:       "List supported viewing formats and anaglyph mappings",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			formatRows := [][]string{
				{string(transcode.KindAnaglyph), "Single stream for red/cyan glasses"},
				{string(transcode.KindInterlaced), "Row-interleaved for passive 3D displays"},
				{string(transcode.KindCheckerboard), "Checkerboard for DLP 3D displays"},
				{string(transcode.KindStereoscope), "Side-by-side with a center gap for phone viewers"},
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Format", "Description"},
				formatRows,
				[]columnAlignment{alignLeft, alignLeft},
			))

			mappingRows := make([][]string, 0, 4)
			for _, name := range transcode.MappingNames() {
				mapping, err := transcode.ParseMapping(name)
				if err != nil {
					continue
				}
				mappingRows = append(mappingRows, []string{name, mapping.Describe()})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Anaglyph mapping", "Description"},
				mappingRows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
