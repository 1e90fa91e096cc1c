// Command tide-clock drives a modified quartz clock movement so that its hand
// shows the time to the next high or low tide, using NOAA predictions.
package main

import "github.com/spf13/cobra"

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
