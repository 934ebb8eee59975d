package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/travisano/unite-heatmap/store"
	"github.com/travisano/unite-heatmap/utils"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List recorded sessions, or the camps and landmarks of one session",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.Paths.History == "" {
			utils.Die("Session history is disabled", fmt.Errorf("set paths.history or HEATMAP_HISTORY_DB"))
		}
		h, err := store.OpenHistory(cfg.Paths.History)
		if err != nil {
			utils.Die("Failed to open the session history", err)
		}
		defer h.Close()

		if len(args) == 1 {
			runEntities(cmd, h, args[0])
			return
		}
		runHistory(cmd, h)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Sessions to list, 0 for all")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, h *store.History) {
	sessions, err := h.ListSessions(cmd.Context(), historyLimit)
	if err != nil {
		utils.Die("Failed to list sessions", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded yet.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tMAP\tSTARTED\tLENGTH\tFRAMES\tCAMPS\tLANDMARKS\tHEATMAP")
	fmt.Fprintln(w, "--\t---\t-------\t------\t------\t-----\t---------\t-------")
	for _, s := range sessions {
		length := utils.FormatUptime(int(s.DurationSeconds))
		if s.Interrupted {
			length += "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			s.ID, s.Map, s.StartedAt.Local().Format("2006-01-02 15:04"), length, s.Frames, s.Camps, s.Landmarks, s.ImagePath)
	}
	w.Flush()
}

func runEntities(cmd *cobra.Command, h *store.History, id string) {
	entities, err := h.Entities(cmd.Context(), id)
	if err != nil {
		utils.Die("Failed to read the session", err)
	}
	if len(entities) == 0 {
		fmt.Printf("No camps or landmarks recorded for %s.\n", id)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tX\tY\tUPTIME\tDETECTIONS\tZONE")
	fmt.Fprintln(w, "----\t--\t-\t-\t------\t----------\t----")
	for _, e := range entities {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%d\t%s\n",
			e.Kind, e.ID, e.Position[0], e.Position[1], e.Uptime, e.Detections, e.Zone)
	}
	w.Flush()
}
