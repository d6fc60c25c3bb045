package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var tasksLimit int

var tasksCmd = &cobra.Command{
	Use:   "tasks [id]",
	Short: "Show background tasks",
	Long: `Without arguments, lists recent tasks newest first. With a task id,
shows that task.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().IntVarP(&tasksLimit, "limit", "n", 20, "maximum number of tasks to list")
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	if taskQueue == nil {
		return errors.New("task queue not configured")
	}

	ctx := context.Background()

	if len(args) == 1 {
		task, err := taskQueue.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}
		cmd.Printf("%s  %-18s %-10s %s\n", task.ID, task.Kind, task.Status,
			task.CreatedAt.Format("2006-01-02 15:04:05"))
		if task.Payload != "" {
			cmd.Printf("  payload: %s\n", task.Payload)
		}
		return nil
	}

	tasks, err := taskQueue.Recent(ctx, tasksLimit)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		cmd.Println("No tasks.")
		return nil
	}
	for i := range tasks {
		t := &tasks[i]
		cmd.Printf("%s  %-18s %-10s %s\n", t.ID, t.Kind, t.Status,
			t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
