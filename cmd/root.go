package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd is the top-level outlook-mcp command; subcommands attach in init.
var rootCmd = &cobra.Command{
	Use:   "outlook-mcp",
	Short: "MCP server for Microsoft Outlook",
	Long: `outlook-mcp bridges AI assistants to a Microsoft Outlook mailbox through
the Model Context Protocol (MCP). It exposes mail, folder, calendar, and
inbox-rule tools backed by the Microsoft Graph API and manages the OAuth2
credential lifecycle itself: browser consent, token persistence, and
automatic refresh.

It can run as:
  - An MCP server over stdio (default) or streamable HTTP
  - A CLI for managing the stored Microsoft credentials (auth subcommands)`,
	SilenceUsage: true,
}

// version is stamped by main at build time.
var version = "dev"

// SetVersion records the build version reported by --version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the CLI.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "outlook-mcp version %s\n" .Version}}`)

	// A .env file is convenient during development; absence is not an error.
	_ = godotenv.Load()

	// Bare invocation starts the MCP server, which is how assistant configs
	// usually launch this binary.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
