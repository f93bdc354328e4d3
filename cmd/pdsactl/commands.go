package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdsa-team/pdsa-backend/internal/api"
)

// --- health ---

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/health")
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("%s (%s)", result["message"], result["status"])
		return nil
	},
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one message to the PDSA assistant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		if strings.TrimSpace(message) == "" {
			return fmt.Errorf("message cannot be empty")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/chat", map[string]any{
			"message": message,
			"history": []any{},
		})
		if err != nil {
			return err
		}

		var result struct {
			Success bool   `json:"success"`
			Reply   string `json:"reply"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Reply)
		return nil
	},
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a Markdown document from a web page or text",
	Long: `Generate a Markdown document from a web page or text.

Examples:
  pdsactl generate --url https://example.com/pdsa-guide
  pdsactl generate --content "PDSA cycle notes..." --name notes
  pdsactl generate --file ./draft.txt`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		content, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("file")
		name, _ := cmd.Flags().GetString("name")
		quiet, _ := cmd.Flags().GetBool("quiet")

		if content != "" && file != "" {
			return fmt.Errorf("--content and --file are mutually exclusive")
		}
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			content = string(data)
		}
		if strings.TrimSpace(url) == "" && strings.TrimSpace(content) == "" {
			return fmt.Errorf("one of --url, --content, or --file is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/admin/generate-doc", api.GenerateDocRequest{
			URL:      url,
			Content:  content,
			FileName: name,
		})
		if err != nil {
			return err
		}

		var result api.GenerateDocResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Saved %s at %s", result.FilePath, result.CreateTime)
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), result.Markdown)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().String("url", "", "web page to convert")
	generateCmd.Flags().String("content", "", "text to convert")
	generateCmd.Flags().String("file", "", "read the text to convert from a file")
	generateCmd.Flags().String("name", "", "base name for the document")
	generateCmd.Flags().BoolP("quiet", "q", false, "do not print the generated Markdown")
}

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Inspect generated documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated documents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/admin/docs")
		if err != nil {
			return err
		}

		var result api.DocListResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(result.Documents) == 0 {
			fmt.Fprintln(out, "No documents.")
			return nil
		}
		for _, d := range result.Documents {
			fmt.Fprintf(out, "%-50s %10s  %s\n", d.Name, d.SizeHuman, d.Modified.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// --- settings ---

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage chat log retention settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the log cleanup policy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/settings/log-cleanup")
		if err != nil {
			return err
		}

		var result api.CleanupSettingsResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printStatus(out, "Strategy", "%s", result.Strategy)
		printStatus(out, "Cleanup time", "%s", result.CleanupTime)
		if result.NextRun != "" {
			printStatus(out, "Next run", "%s", result.NextRun)
		}
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the log cleanup policy",
	Long: `Change the log cleanup policy.

Strategies: never, daily, weekly (Mondays), immediate (clear now).

Examples:
  pdsactl settings set --strategy daily --time 03:30
  pdsactl settings set --strategy never`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, _ := cmd.Flags().GetString("strategy")
		cleanupTime, _ := cmd.Flags().GetString("time")
		if strategy == "" {
			return fmt.Errorf("--strategy is required")
		}
		return updateCleanup(cmd, strategy, cleanupTime)
	},
}

func init() {
	settingsSetCmd.Flags().String("strategy", "", "never, daily, weekly or immediate")
	settingsSetCmd.Flags().String("time", "", "cleanup time as HH:MM (default 02:00)")
}

func updateCleanup(cmd *cobra.Command, strategy, cleanupTime string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	resp, err := client.post(cmd.Context(), "/api/settings/log-cleanup", api.CleanupUpdateRequest{
		Strategy:    strategy,
		CleanupTime: cleanupTime,
	})
	if err != nil {
		return err
	}

	var result api.CleanupUpdateResponse
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	if strings.Contains(result.Message, "failed") {
		printWarning("%s", result.Message)
	} else {
		printSuccess("%s", result.Message)
	}
	printStatus(cmd.OutOrStdout(), "Strategy", "%s", result.Strategy)
	printStatus(cmd.OutOrStdout(), "Cleanup time", "%s", result.CleanupTime)
	return nil
}

// --- logs ---

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect and clear the chat log",
}

var logsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show chat log statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/logs/status")
		if err != nil {
			return err
		}

		var result api.LogStatus
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, result)
		}
		printStatus(out, "Path", "%s", result.LogPath)
		printStatus(out, "Entries", "%d", result.LogCount)
		printStatus(out, "Size", "%s (%d bytes)", result.LogSizeHuman, result.LogSize)
		printStatus(out, "Last update", "%s", result.LastUpdate)
		return nil
	},
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the chat log now",
	Long: `Clear the chat log now. The persisted policy becomes "never"; the
current cleanup time is kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/settings/log-cleanup")
		if err != nil {
			return err
		}
		var current api.CleanupSettingsResponse
		if err := decodeJSON(resp, &current); err != nil {
			return err
		}
		return updateCleanup(cmd, "immediate", current.CleanupTime)
	},
}

func init() {
	logsStatusCmd.Flags().Bool("json", false, "print the raw status JSON")
}
