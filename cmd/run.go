package cmd

import (
	"context"
	"fmt"

	"github.com/biromiro/swgnn/internal/mlflow"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Inspect tracked runs",
	Long:  "Query tracked training runs on the MLflow server",
}

var runStatusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show the status of a tracked run",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runStatusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	tcfg := mlflow.TrackingFromViper()
	if err := tcfg.Validate(); err != nil {
		return err
	}
	client, err := mlflow.NewClient(tcfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	info, err := client.GetRun(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	fmt.Printf("run_id:        %s\n", info.RunID)
	fmt.Printf("experiment_id: %s\n", info.ExperimentID)
	if info.RunName != "" {
		fmt.Printf("run_name:      %s\n", info.RunName)
	}
	fmt.Printf("status:        %s\n", info.Status)
	fmt.Printf("start_time:    %s\n", info.StartTime.Format("2006-01-02 15:04:05"))
	if info.EndTime != nil {
		fmt.Printf("end_time:      %s\n", info.EndTime.Format("2006-01-02 15:04:05"))
	}
	return nil
}
