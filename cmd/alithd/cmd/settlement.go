package cmd

import (
	"context"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/coolcode/alith/client"
	settlementtypes "github.com/coolcode/alith/x/settlement/types"
	"github.com/coolcode/alith/x/signing"
)

// SettlementCmd groups the inference payment commands.
func SettlementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settlement",
		Short: "Fund inference accounts and settle node fees",
	}
	cmd.AddCommand(
		amountTxCmd("add-user", "Open a settlement account funded with amount", (*client.Client).AddUser),
		amountTxCmd("deposit", "Add amount to your settlement balance", (*client.Client).Deposit),
		amountTxCmd("withdraw", "Withdraw amount of unallocated balance", (*client.Client).Withdraw),
		depositInferenceCmd(),
		retrieveInferenceCmd(),
		getUserCmd(),
		getAccountCmd(),
		signRequestCmd(),
		settleFeesCmd(),
	)
	return cmd
}

// amountTxCmd builds a command whose single argument is an amount paid to
// or from the signer's settlement balance.
func amountTxCmd(use, short string, tx func(*client.Client, context.Context, *big.Int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [amount]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			return tx(c, cmd.Context(), amount)
		},
	}
}

func depositInferenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deposit-inference [node] [amount]",
		Short: "Move amount of available balance into your account with a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			node, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			return c.DepositInference(cmd.Context(), node, amount)
		},
	}
}

func retrieveInferenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retrieve [node...]",
		Short: "Return the balances held with nodes to your available balance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			nodes, err := parseAddresses(args)
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			return c.RetrieveInference(cmd.Context(), nodes)
		},
	}
}

func getUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user [address]",
		Short: "Show a settlement user (default: the signer)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			c, signer, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			addr := signer.Address()
			if len(args) == 1 {
				if addr, err = parseAddress(args[0]); err != nil {
					return err
				}
			}
			user, err := c.GetUser(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return printJSON(cmd, user)
		},
	}
}

func getAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account [user] [node]",
		Short: "Show the inference account of a user with a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			addrs, err := parseAddresses(args)
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			account, err := c.GetAccount(cmd.Context(), addrs[0], addrs[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, account)
		},
	}
}

type signedRequest struct {
	User      string `json:"user"`
	Node      string `json:"node"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

func signRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign-request [node] [nonce]",
		Short: "Sign a request authorising a node to charge your account",
		Long: `Sign a settlement request as the configured user. The node passes the
signature to "settlement settle" to claim its fee. No ledger is contacted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			node, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			nonce, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			signer, err := env.signer()
			if err != nil {
				return err
			}
			req := settlementtypes.SettlementRequest{Nonce: nonce, User: signer.Address(), Node: node}
			sig, err := req.Sign(signer)
			if err != nil {
				return err
			}
			return printJSON(cmd, signedRequest{
				User:      sig.User.Hex(),
				Node:      node.Hex(),
				Nonce:     sig.Nonce.String(),
				Signature: sig.Signature.Hex(),
			})
		},
	}
}

func settleFeesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle [user] [nonce] [user-signature] [request-id] [cost]",
		Short: "Claim the cost of a user-signed request as the serving node",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			user, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			nonce, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			userSig, err := signing.ParseSignature(args[2])
			if err != nil {
				return err
			}
			id, err := parseAmount(args[3])
			if err != nil {
				return err
			}
			cost, err := parseAmount(args[4])
			if err != nil {
				return err
			}

			c, signer, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			proof, err := settlementtypes.NewSettlementProof(signer, id, cost, settlementtypes.SettlementSignature{
				User:      user,
				Nonce:     nonce,
				Signature: userSig,
			})
			if err != nil {
				return err
			}
			receipt, err := c.SettleFees(cmd.Context(), proof)
			if err != nil {
				return err
			}
			return printJSON(cmd, receipt)
		},
	}
}
