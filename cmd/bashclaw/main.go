// Package main provides the CLI entry point for bashclaw, a multi-channel
// AI-assistant gateway core.
//
// # Basic Usage
//
// Run one agent turn:
//
//	bashclaw agent -m "what's on my calendar?"
//
// Serve the MCP bridge over stdio:
//
//	bashclaw mcp
//
// Inspect stored sessions:
//
//	bashclaw sessions list
//
// # Environment Variables
//
//   - BASHCLAW_STATE_DIR: State directory (default: ~/.bashclaw)
//   - ANTHROPIC_API_KEY / OPENAI_API_KEY / GEMINI_API_KEY: provider credentials
//   - MODEL_ID: overrides the configured model
//   - TELEGRAM_BOT_TOKEN / DISCORD_BOT_TOKEN / SLACK_BOT_TOKEN: outbound channels
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bashclaw/bashclaw/internal/config"
	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer config.CleanupTempFiles()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "bashclaw",
		Short:         "Multi-channel AI assistant gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		buildAgentCmd(),
		buildMCPCmd(),
		buildSessionsCmd(),
		buildCronCmd(),
		buildEnvCmd(),
		buildVersionCmd(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		config.CleanupTempFiles()
		os.Exit(1)
	}
}
