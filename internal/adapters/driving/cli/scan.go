package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

var scanCmd = &cobra.Command{
	Use:   "scan [folder...]",
	Short: "Queue a library scan",
	Long: `Enqueues a scan task. Without arguments the configured media folders
are scanned; folder arguments narrow the scan to those paths. The task runs
in the serve process.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if taskQueue == nil {
		return errors.New("task queue not configured")
	}

	payload := ""
	if len(args) > 0 {
		data, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encoding folder list: %w", err)
		}
		payload = string(data)
	}

	task, err := taskQueue.Enqueue(context.Background(), domain.TaskScan, payload)
	if err != nil {
		return fmt.Errorf("enqueue scan: %w", err)
	}

	cmd.Printf("Queued scan task %s\n", task.ID)
	return nil
}
