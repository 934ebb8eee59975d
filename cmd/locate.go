package cmd

import (
	"fmt"
	"image/color"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/travisano/unite-heatmap/imgproc"
	"github.com/travisano/unite-heatmap/utils"
)

var locateOut string

var locateCmd = &cobra.Command{
	Use:   "locate <screenshot>",
	Short: "Find the minimap in a screenshot",
	Long:  `Runs the minimap localizer once over a saved screenshot and prints the region it would track.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runLocate(args[0])
	},
}

func init() {
	locateCmd.Flags().StringVarP(&locateOut, "out", "o", "", "Write the screenshot with the region outlined to this file")
	rootCmd.AddCommand(locateCmd)
}

func runLocate(path string) {
	frame := gocv.IMRead(path, gocv.IMReadColor)
	if frame.Empty() {
		utils.Die("Failed to read the screenshot", fmt.Errorf("%s is missing or not an image", path))
	}
	defer frame.Close()

	region, ok := imgproc.NewLocalizer(cfg.Detection.Localizer).Locate(frame)
	if !ok {
		fmt.Println("Minimap not found.")
		return
	}
	fmt.Printf("Minimap: %s (aspect %.2f)\n", region, region.Aspect())

	if locateOut == "" {
		return
	}
	gocv.Rectangle(&frame, region.Rectangle, color.RGBA{255, 255, 0, 0}, 2)
	if ok := gocv.IMWrite(locateOut, frame); !ok {
		utils.Die("Failed to write the outlined screenshot", fmt.Errorf("could not encode %s", locateOut))
	}
	fmt.Printf("Saved %s\n", locateOut)
}
