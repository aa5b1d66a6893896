// Package commands implements the meshctl CLI commands.
package commands

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/atomozero/meshcore-go/internal/controlplane"
)

var (
	// client is the ConnectRPC NodeService client, initialized in PersistentPreRunE.
	client *controlplane.NodeServiceClient

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// serverAddr is the daemon address (host:port) for the ConnectRPC connection.
	serverAddr string
)

// rootCmd is the top-level cobra command for meshctl.
var rootCmd = &cobra.Command{
	Use:   "meshctl",
	Short: "CLI client for the meshcored repeater daemon",
	Long:  "meshctl communicates with the meshcored daemon via ConnectRPC to inspect and administer a mesh node.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		client = controlplane.NewNodeServiceClient(
			http.DefaultClient,
			"http://"+serverAddr,
			controlplane.WithJSONCodec(),
		)

		return nil
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:50051",
		"meshcored daemon address (host:port)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(nodesCmd())
	rootCmd.AddCommand(contactsCmd())
	rootCmd.AddCommand(neighboursCmd())
	rootCmd.AddCommand(cliCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
