package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vetclinic/aiadmin/internal/core/ports"
)

var reportOut string

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write the report to this file instead of stdout")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(recoverCmd)
}

var submitCmd = &cobra.Command{
	Use:   "submit <request>",
	Short: "Store a request and run it through the pipeline",
	Long: `Store a request as a pending task and run the pipeline in the foreground.

Examples:
  aiadmin submit "Add a news item announcing the new dental service"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()
		p, err := e.pipeline()
		if err != nil {
			return err
		}

		ctx := context.Background()
		task, err := p.TaskService.Create(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "task %d created\n", task.ID)

		if err := p.Orchestrator.Run(ctx, task.ID); err != nil {
			return err
		}
		return printDetails(cmd, p.TaskService.GetTaskDetails, task.ID)
	},
}

var runCmd = &cobra.Command{
	Use:   "run <task-id>",
	Short: "Run a pending task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()
		p, err := e.pipeline()
		if err != nil {
			return err
		}

		if err := p.Orchestrator.Run(context.Background(), id); err != nil {
			return err
		}
		return printDetails(cmd, p.TaskService.GetTaskDetails, id)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show a task's status, summary and report slug",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()
		p, err := e.queryPipeline()
		if err != nil {
			return err
		}
		return printDetails(cmd, p.TaskService.GetTaskDetails, id)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <slug>",
	Short: "Print a report's markup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()
		p, err := e.queryPipeline()
		if err != nil {
			return err
		}

		report, err := p.TaskService.GetReport(context.Background(), args[0])
		if err != nil {
			return err
		}
		if reportOut != "" {
			return os.WriteFile(reportOut, []byte(report.Content), 0o644)
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Content)
		return nil
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Mark tasks left mid-pipeline by a stopped process as failed",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()
		p, err := e.queryPipeline()
		if err != nil {
			return err
		}

		n, err := p.TaskService.FailInterrupted(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d interrupted task(s) marked failed\n", n)
		return nil
	},
}

func parseTaskID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return uint(id), nil
}

func printDetails(cmd *cobra.Command, get func(context.Context, uint) (*ports.TaskDetails, error), id uint) error {
	details, err := get(context.Background(), id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(details)
}
