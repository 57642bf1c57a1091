package cmd

import (
	"github.com/spf13/cobra"
)

// JobsCmd groups the proof job commands.
func JobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Request and inspect proof jobs",
	}
	cmd.AddCommand(
		requestProofCmd(),
		completeJobCmd(),
		getJobCmd(),
		fileJobsCmd(),
		jobsCountCmd(),
	)
	return cmd
}

func requestProofCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request [file-id] [value]",
		Short: "Escrow value and open a proof job on the next node",
		Long: `Escrow value and open a proof job for a file. Nodes are assigned round-robin
and value must cover the assigned node's fee. Prints the new job id.`,
		Args: cobra.ExactArgs(2),
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
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			jobID, err := c.RequestProof(cmd.Context(), fileID, value)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]uint64{"job_id": jobID})
		},
	}
}

func completeJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete [job-id]",
		Short: "Mark a job completed (assigned node only)",
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
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			return c.CompleteJob(cmd.Context(), jobID)
		},
	}
}

func getJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [job-id]",
		Short: "Show a job",
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
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			job, err := c.GetJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			return printJSON(cmd, job)
		},
	}
}

func fileJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [file-id]",
		Short: "List the job ids of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			fileID, err := parseID("file id", args[0])
			if err != nil {
				return err
			}
			c, _, err := env.ledgerClient(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := c.FileJobIDs(cmd.Context(), fileID)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string][]uint64{"job_ids": ids})
		},
	}
}

func jobsCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of jobs",
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
			n, err := c.JobsCount(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]uint64{"count": n})
		},
	}
}
