package cmd

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/travisano/unite-heatmap/imgproc"
	"github.com/travisano/unite-heatmap/types"
	"github.com/travisano/unite-heatmap/utils"
)

var detectOut string

var detectCmd = &cobra.Command{
	Use:   "detect <crop>",
	Short: "List everything detected in one minimap crop",
	Long:  `Runs every detector over a saved minimap crop, for example one kept with --keep-frames, and prints the detections.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDetect(args[0])
	},
}

func init() {
	detectCmd.Flags().StringVarP(&detectOut, "out", "o", "", "Write the crop with detections circled to this file")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(path string) {
	crop := gocv.IMRead(path, gocv.IMReadColor)
	if crop.Empty() {
		utils.Die("Failed to read the crop", fmt.Errorf("%s is missing or not an image", path))
	}
	defer crop.Close()

	found := imgproc.NewAnalyzer(cfg.Detection).Analyze(crop, 0)
	all := make([]types.Detection, 0, len(found.Markers)+len(found.Small)+len(found.Large))
	all = append(all, found.Markers...)
	all = append(all, found.Small...)
	all = append(all, found.Large...)

	if len(all) == 0 {
		fmt.Println("Nothing detected.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tX\tY\tRADIUS\tSIZE\tCONFIDENCE\tZONE")
	fmt.Fprintln(w, "--------\t-\t-\t------\t----\t----------\t----")
	for _, d := range all {
		fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%.1f\t%s\t%d\t%s\n",
			d.Category, d.Position.X, d.Position.Y, d.Radius, d.Size, d.Confidence, d.Zone)
	}
	w.Flush()

	if detectOut == "" {
		return
	}
	for _, d := range all {
		radius := int(d.Radius)
		if radius == 0 {
			radius = 4
		}
		gocv.Circle(&crop, image.Pt(int(d.Position.X), int(d.Position.Y)), radius, categoryColor(d.Category), 1)
	}
	if ok := gocv.IMWrite(detectOut, crop); !ok {
		utils.Die("Failed to write the annotated crop", fmt.Errorf("could not encode %s", detectOut))
	}
	fmt.Printf("Saved %s\n", detectOut)
}

func categoryColor(c types.Category) color.RGBA {
	teamA, teamB := cfg.Palette.Colors()
	switch c {
	case types.TeamA:
		return teamA
	case types.TeamB:
		return teamB
	case types.LargeFeature:
		return color.RGBA{255, 0, 0, 0}
	default:
		return color.RGBA{255, 255, 0, 0}
	}
}
