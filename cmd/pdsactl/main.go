// pdsactl is the command-line client for a running PDSA server.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:           "pdsactl",
	Short:         "Administer a running PDSA server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (default http://127.0.0.1:$PORT)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	logsCmd.AddCommand(logsStatusCmd, logsClearCmd)
	docsCmd.AddCommand(docsListCmd)
	rootCmd.AddCommand(healthCmd, chatCmd, generateCmd, docsCmd, settingsCmd, logsCmd)
}

func main() {
	// A missing .env is normal outside the server directory.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
