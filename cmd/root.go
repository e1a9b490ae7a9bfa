package cmd

import (
	"os"

	"github.com/BioHazard786/Roomcast/internal/ui"
	"github.com/BioHazard786/Roomcast/internal/version"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "roomcast",
	Short:   "One-to-many live media broadcasting over WebRTC",
	Long:    `Roomcast streams media files live to any number of viewers using WebRTC. A host opens a room and broadcasts IVF video and Ogg audio; viewers join with the room ID or link, watch the stream, and can record it to disk. A bundled signaling relay makes self-hosting a one-command affair.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
