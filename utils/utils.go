package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnknownMap = errors.New("unknown map")

var maps = map[string]string{
	"theia":  "theiaskyruins.png",
	"remoat": "remoatstadium.png",
}

// GetMapPath returns the reference image for a named map, relative to the resources root
func GetMapPath(mapName string) (string, error) {
	file, ok := maps[strings.ToLower(mapName)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownMap, mapName)
	}
	return filepath.Join("resources", "maps", file), nil
}

// FormatUptime renders a second count as MM:SS. Minutes are not capped at 59.
func FormatUptime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Die prints a formatted error box to stderr and exits.
func Die(context string, err error) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 HEATMAP ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
	os.Exit(1)
}
