package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var taskHistoryLimit int

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Show scheduled tasks and recent runs",
	Long: `Shows the scheduler's tasks with their last and next run times, followed by
the most recent results of each task.`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().IntVarP(&taskHistoryLimit, "limit", "n", 5, "results to show per task")
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, _ []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	if a.Tasks == nil {
		return errors.New("scheduler store not configured")
	}
	ctx := commandContext(cmd)

	tasks, err := a.Tasks.ListTasks(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		cmd.Println("No scheduled tasks. Run 'holdings-sync serve' to create them.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, task := range tasks {
		state := "enabled"
		if !task.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(w, "%s (%s)\t%s\tevery %s\n", task.Name, task.ID, state, task.Interval)
		fmt.Fprintf(w, "  last run\t%s\t\n", formatTime(task.LastRun))
		fmt.Fprintf(w, "  next run\t%s\t\n", formatTime(task.NextRun))
		if task.LastError != "" {
			fmt.Fprintf(w, "  last error\t%s\t\n", task.LastError)
		}

		history, err := a.Tasks.GetTaskHistory(ctx, task.ID, taskHistoryLimit)
		if err != nil {
			return fmt.Errorf("history of %s: %w", task.ID, err)
		}
		for _, r := range history {
			outcome := "ok"
			if !r.Success {
				outcome = "failed: " + r.Error
			}
			fmt.Fprintf(w, "  %s\t%d tenants\t%s\n", formatTime(r.StartedAt), r.ItemsProcessed, outcome)
		}
	}
	return w.Flush()
}
