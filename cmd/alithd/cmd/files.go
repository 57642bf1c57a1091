package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coolcode/alith/contracts"
)

const (
	flagOwner      = "owner"
	flagPermission = "permission"
)

// FilesCmd groups the file registry commands.
func FilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Register files and manage their permissions and proofs",
	}
	cmd.AddCommand(
		addFileCmd(),
		getFileCmd(),
		fileIDCmd(),
		filesCountCmd(),
		addPermissionCmd(),
		getPermissionCmd(),
		getProofCmd(),
		requestRewardCmd(),
	)
	return cmd
}

func addFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [url]",
		Short: "Register a file and print its id",
		Long: `Register a file and print its id. Without --owner or --permission the call is
idempotent and returns the existing id of a known url.

Example:
  alithcli files add ipfs://bafy... --permission 0xabc...=<encrypted key>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			owner, _ := cmd.Flags().GetString(flagOwner)
			grants, _ := cmd.Flags().GetStringArray(flagPermission)

			c, signer, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}

			var id uint64
			if owner == "" && len(grants) == 0 {
				id, err = c.AddFile(cmd.Context(), args[0])
			} else {
				ownerAddr := signer.Address()
				if owner != "" {
					if ownerAddr, err = parseAddress(owner); err != nil {
						return err
					}
				}
				perms := make([]contracts.Permission, 0, len(grants))
				for _, g := range grants {
					account, key, ok := strings.Cut(g, "=")
					if !ok {
						return fmt.Errorf("invalid --%s %q: want account=key", flagPermission, g)
					}
					addr, err := parseAddress(account)
					if err != nil {
						return err
					}
					perms = append(perms, contracts.Permission{Account: addr, Key: key})
				}
				id, err = c.AddFileWithPermissions(cmd.Context(), args[0], ownerAddr, perms)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]uint64{"file_id": id})
		},
	}
	cmd.Flags().String(flagOwner, "", "owner of the file (default: the signer)")
	cmd.Flags().StringArray(flagPermission, nil, "grant account=key, repeatable")
	return cmd
}

func getFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [file-id]",
		Short: "Show a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("file id", args[0])
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			file, err := c.GetFile(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, file)
		},
	}
}

func fileIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id [url]",
		Short: "Print the id registered for a url, 0 when none is",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			id, err := c.GetFileIDByURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]uint64{"file_id": id})
		},
	}
}

func filesCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of registered files",
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
			n, err := c.FilesCount(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]uint64{"count": n})
		},
	}
}

func addPermissionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "permit [file-id] [account] [key]",
		Short: "Grant an account an encrypted key for a file you own",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("file id", args[0])
			if err != nil {
				return err
			}
			account, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			return c.AddPermission(cmd.Context(), id, account, args[2])
		},
	}
}

func getPermissionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "permission [file-id] [account]",
		Short: "Print the key granted to an account, empty when none is",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("file id", args[0])
			if err != nil {
				return err
			}
			account, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			key, err := c.GetPermission(cmd.Context(), id, account)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"key": key})
		},
	}
}

type proofView struct {
	Signature string `json:"signature"`
	FileID    string `json:"file_id"`
	FileURL   string `json:"file_url"`
	ProofURL  string `json:"proof_url"`
}

func getProofCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "proof [file-id] [index]",
		Short: "Show a proof of a file; indexes start at 1",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("file id", args[0])
			if err != nil {
				return err
			}
			index, err := parseID("proof index", args[1])
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			proof, err := c.GetProof(cmd.Context(), id, index)
			if err != nil {
				return err
			}
			view := proofView{
				Signature: fmt.Sprintf("0x%x", proof.Signature),
				FileURL:   proof.Data.FileURL,
				ProofURL:  proof.Data.ProofURL,
			}
			if proof.Data.ID != nil {
				view.FileID = proof.Data.ID.String()
			}
			return printJSON(cmd, view)
		},
	}
}

func requestRewardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reward [file-id] [proof-index]",
		Short: "Claim the reward for a proven file (proof index defaults to 1)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("file id", args[0])
			if err != nil {
				return err
			}
			var index uint64
			if len(args) == 2 {
				if index, err = parseID("proof index", args[1]); err != nil {
					return err
				}
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			receipt, err := c.RequestReward(cmd.Context(), id, index)
			if err != nil {
				return err
			}
			return printJSON(cmd, receipt)
		},
	}
}
