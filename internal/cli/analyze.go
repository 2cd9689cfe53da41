package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/Critpath/internal/engine"
	"github.com/shaiso/Critpath/internal/taskfile"
)

// NewAnalyzeCmd создаёт команду расчёта расписания по файлу задач.
func NewAnalyzeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Compute the critical path schedule for a task file (.json or .hcl)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			records, err := taskfile.Load(args[0])
			if err != nil {
				return err
			}

			if offline {
				result, err := engine.Analyze(records)
				if err != nil {
					return err
				}
				out.PrintResult(result)
				return nil
			}

			result, err := clientFn().Analyze(records)
			if err != nil {
				return err
			}
			out.PrintResult(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Compute locally without the API server")

	return cmd
}
