package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/spf13/cobra"

	"github.com/coolcode/alith/client"
	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/x/reqauth"
	"github.com/coolcode/alith/x/signing"
)

const (
	flagSecret        = "secret"
	flagEncryptionKey = "encryption-key"
	flagProofURL      = "proof-url"
	flagNonce         = "nonce"
)

// ProofCmd groups the commands that talk to compute nodes.
func ProofCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Ask compute nodes to prove files",
	}
	cmd.AddCommand(sendProofCmd(), requestAndSendProofCmd())
	return cmd
}

func addProofFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagSecret, "", "file secret, encrypted to the node's RSA key")
	cmd.Flags().String(flagEncryptionKey, "", "already encrypted key to pass through")
	cmd.Flags().String(flagProofURL, "", "where the node should anchor the proof")
	cmd.Flags().Uint64(flagNonce, 0, "request nonce (default: current unix time in milliseconds)")
}

func sendProofCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [job-id]",
		Short: "Send the proof request of an open job to its assigned node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			jobID, err := parseID("job id", args[0])
			if err != nil {
				return err
			}
			c, signer, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := sendProof(cmd, env, c, signer, jobID)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	addProofFlags(cmd)
	return cmd
}

func requestAndSendProofCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request [file-id] [value]",
		Short: "Open a proof job for a file and send it to the assigned node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			fileID, err := parseID("file id", args[0])
			if err != nil {
				return err
			}
			value, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			c, signer, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			jobID, err := c.RequestProof(cmd.Context(), fileID, value)
			if err != nil {
				return err
			}
			env.logger.Info("proof job opened", "job_id", jobID, "file_id", fileID)
			resp, err := sendProof(cmd, env, c, signer, jobID)
			if err != nil {
				return fmt.Errorf("job %d opened but not delivered: %w", jobID, err)
			}
			return printJSON(cmd, resp)
		},
	}
	addProofFlags(cmd)
	return cmd
}

// sendProof resolves the job's file and node on the ledger and delivers an
// authenticated proof request to the node.
func sendProof(cmd *cobra.Command, env *cmdEnv, c *client.Client, signer *signing.Signer, jobID uint64) (client.ProofResponse, error) {
	ctx := cmd.Context()
	secret, _ := cmd.Flags().GetString(flagSecret)
	encryptionKey, _ := cmd.Flags().GetString(flagEncryptionKey)
	proofURL, _ := cmd.Flags().GetString(flagProofURL)
	nonce, _ := cmd.Flags().GetUint64(flagNonce)
	if nonce == 0 {
		nonce = uint64(time.Now().UnixMilli())
	}

	job, file, node, err := resolveJob(ctx, c, jobID)
	if err != nil {
		return client.ProofResponse{}, err
	}

	switch {
	case secret != "" && encryptionKey != "":
		return client.ProofResponse{}, fmt.Errorf("--%s and --%s are exclusive", flagSecret, flagEncryptionKey)
	case secret != "":
		if node.PublicKey == "" {
			return client.ProofResponse{}, fmt.Errorf("node %s publishes no public key", node.NodeAddress.Hex())
		}
		if encryptionKey, err = client.EncryptForNode(node.PublicKey, []byte(secret)); err != nil {
			return client.ProofResponse{}, err
		}
	case encryptionKey == "":
		return client.ProofResponse{}, fmt.Errorf("one of --%s or --%s is required", flagSecret, flagEncryptionKey)
	}

	req := client.ProofRequest{
		JobID:         jobID,
		FileID:        job.FileID.Uint64(),
		FileURL:       file.URL,
		EncryptionKey: encryptionKey,
		Nonce:         &nonce,
	}
	if proofURL != "" {
		req.ProofURL = &proofURL
	}

	headers, err := reqauth.Build(signer, node.NodeAddress, new(big.Int).SetUint64(nonce))
	if err != nil {
		return client.ProofResponse{}, err
	}
	nodes := client.NewNodeClient(nil, env.config.Headers)
	return nodes.SendProofRequest(ctx, node.URL, req, &headers)
}

func resolveJob(ctx context.Context, c *client.Client, jobID uint64) (contracts.Job, contracts.File, contracts.NodeInfo, error) {
	job, err := c.GetJob(ctx, jobID)
	if err != nil {
		return contracts.Job{}, contracts.File{}, contracts.NodeInfo{}, err
	}
	if job.Status == contracts.JobStatusNone {
		return contracts.Job{}, contracts.File{}, contracts.NodeInfo{}, fmt.Errorf("job %d not found", jobID)
	}
	if job.Status == contracts.JobStatusCompleted {
		return contracts.Job{}, contracts.File{}, contracts.NodeInfo{}, fmt.Errorf("job %d is already completed", jobID)
	}
	file, err := c.GetFile(ctx, job.FileID.Uint64())
	if err != nil {
		return contracts.Job{}, contracts.File{}, contracts.NodeInfo{}, err
	}
	node, found, err := c.GetNode(ctx, job.NodeAddress)
	if err != nil {
		return contracts.Job{}, contracts.File{}, contracts.NodeInfo{}, err
	}
	if !found || node.URL == "" {
		return contracts.Job{}, contracts.File{}, contracts.NodeInfo{}, errors.New("assigned node " + job.NodeAddress.Hex() + " is not registered")
	}
	return job, file, node, nil
}
