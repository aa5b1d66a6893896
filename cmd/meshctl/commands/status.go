package commands

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/atomozero/meshcore-go/internal/controlplane"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the node's current status snapshot",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resp, err := client.GetStatus(context.Background(), connect.NewRequest(&controlplane.GetStatusRequest{}))
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}

			out, err := formatStatus(resp.Msg, outputFormat)
			if err != nil {
				return fmt.Errorf("format status: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}
}

func nodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List every node the repeater has seen",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resp, err := client.ListNodes(context.Background(), connect.NewRequest(&controlplane.ListNodesRequest{}))
			if err != nil {
				return fmt.Errorf("list nodes: %w", err)
			}

			out, err := formatNodes(resp.Msg.Nodes, outputFormat)
			if err != nil {
				return fmt.Errorf("format nodes: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}
}

func contactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List known contacts",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resp, err := client.ListContacts(context.Background(), connect.NewRequest(&controlplane.ListContactsRequest{}))
			if err != nil {
				return fmt.Errorf("list contacts: %w", err)
			}

			out, err := formatContacts(resp.Msg.Contacts, outputFormat)
			if err != nil {
				return fmt.Errorf("format contacts: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}
}

func neighboursCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "neighbours",
		Short: "List zero-hop neighbours",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resp, err := client.ListNeighbours(context.Background(), connect.NewRequest(&controlplane.ListNeighboursRequest{}))
			if err != nil {
				return fmt.Errorf("list neighbours: %w", err)
			}

			out, err := formatNeighbours(resp.Msg.Neighbours, outputFormat)
			if err != nil {
				return fmt.Errorf("format neighbours: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}
}

func cliCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cli <command line>",
		Short: "Run an admin CLI command line on the node",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			line := joinArgs(args)

			resp, err := client.SendCLI(context.Background(), connect.NewRequest(&controlplane.SendCLIRequest{Line: line}))
			if err != nil {
				return fmt.Errorf("send cli: %w", err)
			}

			fmt.Println(resp.Msg.Reply)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the node's active configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resp, err := client.GetConfig(context.Background(), connect.NewRequest(&controlplane.GetConfigRequest{}))
			if err != nil {
				return fmt.Errorf("get config: %w", err)
			}

			fmt.Println(resp.Msg.ConfigJSON)
			return nil
		},
	}
}

func joinArgs(args []string) string {
	line := args[0]
	for _, a := range args[1:] {
		line += " " + a
	}
	return line
}
