package main

import "github.com/travisano/unite-heatmap/cmd"

func main() {
	cmd.Execute()
}
