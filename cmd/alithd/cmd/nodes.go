package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const flagPublicKeyFile = "public-key-file"

// NodesCmd groups the node registry commands.
func NodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "Manage and inspect the compute node registry",
	}
	cmd.AddCommand(
		addNodeCmd(),
		removeNodeCmd(),
		updateFeeCmd(),
		getNodeCmd(),
		listNodesCmd(),
		nodesCountCmd(),
	)
	return cmd
}

func addNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [address] [url]",
		Short: "Register a compute node (registry admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			pubKey := ""
			if path, _ := cmd.Flags().GetString(flagPublicKeyFile); path != "" {
				raw, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				pubKey = string(raw)
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			return c.AddNode(cmd.Context(), addr, args[1], pubKey)
		},
	}
	cmd.Flags().String(flagPublicKeyFile, "", "PEM RSA public key the node publishes")
	return cmd
}

func removeNodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [address]",
		Short: "Deactivate a compute node (registry admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			return c.RemoveNode(cmd.Context(), addr)
		},
	}
}

func updateFeeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fee [amount]",
		Short: "Set the proof fee of the signing node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			fee, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			return c.UpdateNodeFee(cmd.Context(), fee)
		},
	}
}

func getNodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [address]",
		Short: "Show a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			info, found, err := c.GetNode(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{"found": found, "node": info})
		},
	}
}

func listNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the active nodes in registry order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			nodes, err := c.Nodes(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, nodes)
		},
	}
}

func nodesCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of active nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			n, err := c.NodesCount(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]uint64{"count": n})
		},
	}
}
