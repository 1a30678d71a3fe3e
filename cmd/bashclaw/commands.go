// commands.go contains the cobra command definitions. Each builder creates a
// command and wires it to its handler in handlers.go.
package main

import (
	"github.com/spf13/cobra"
)

func buildAgentCmd() *cobra.Command {
	var (
		configPath string
		agentID    string
		message    string
		channel    string
		sender     string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run one agent turn and print the reply",
		Example: `  # Ask the main agent a question
  bashclaw agent -m "summarize yesterday's notes"

  # Address a specific agent with its own session
  bashclaw agent --agent coder -m "refactor ideas?" --sender jonathan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, configPath, debug, agentID, message, channel, sender)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: <state>/config.json)")
	cmd.Flags().StringVarP(&agentID, "agent", "a", "main", "Agent id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "User message (required)")
	cmd.Flags().StringVar(&channel, "channel", "cli", "Channel name for session routing")
	cmd.Flags().StringVar(&sender, "sender", "", "Sender id for session routing")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.MarkFlagRequired("message")

	return cmd
}

func buildMCPCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP bridge over stdin/stdout",
		Long: `Serve the Model Context Protocol bridge: an NDJSON JSON-RPC server on
stdin/stdout exposing a curated subset of the tool registry. All logging goes
to stderr; stdout carries protocol traffic only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd, configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: <state>/config.json)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func buildSessionsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage stored sessions",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: <state>/config.json)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List session logs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSessionsList(cmd, configPath)
			},
		},
		&cobra.Command{
			Use:   "clear <session>",
			Short: "Clear a session's entries, keeping the file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSessionsClear(cmd, configPath, args[0])
			},
		},
		&cobra.Command{
			Use:   "delete <session>",
			Short: "Delete a session log",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSessionsDelete(cmd, configPath, args[0])
			},
		},
	)
	return cmd
}

func buildCronCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage scheduled agent jobs",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: <state>/config.json)")

	var (
		schedule string
		agentID  string
	)
	addCmd := &cobra.Command{
		Use:   "add <message>",
		Short: "Schedule a recurring agent message",
		Args:  cobra.ExactArgs(1),
		Example: `  bashclaw cron add "post the weather" --schedule "0 8 * * *"
  bashclaw cron add "tidy inbox" --schedule "@daily" --agent main`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCronAdd(cmd, configPath, args[0], schedule, agentID)
		},
	}
	addCmd.Flags().StringVarP(&schedule, "schedule", "s", "", "Cron expression (required)")
	addCmd.Flags().StringVarP(&agentID, "agent", "a", "main", "Agent id")
	addCmd.MarkFlagRequired("schedule")

	cmd.AddCommand(
		addCmd,
		&cobra.Command{
			Use:   "list",
			Short: "List scheduled jobs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCronList(cmd, configPath)
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a scheduled job",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCronRemove(cmd, configPath, args[0])
			},
		},
		&cobra.Command{
			Use:   "run <id>",
			Short: "Run a scheduled job immediately",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCronRun(cmd, configPath, args[0])
			},
		},
	)
	return cmd
}

func buildEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage persisted environment overrides",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist an environment override into the state .env file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvSet(cmd, args[0], args[1])
		},
	})
	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("bashclaw %s (%s, built %s)\n", version, commit, date)
		},
	}
}
