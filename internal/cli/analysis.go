package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var analysisHeaders = []string{"ID", "STATUS", "TRIGGER", "TASKS", "DURATION", "ERROR", "CREATED"}

func analysisRow(a *AnalysisResponse) []string {
	duration := ""
	if a.Result != nil {
		duration = formatNumber(a.Result.ProjectDuration)
	}
	return []string{a.ID, a.Status, a.Trigger, strconv.Itoa(a.TaskCount), duration, a.Error, a.CreatedAt}
}

// NewAnalysisCmd создаёт группу команд для работы с анализами проектов.
func NewAnalysisCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analysis",
		Short: "Manage project analyses",
	}

	cmd.AddCommand(
		newAnalysisStartCmd(clientFn, outputFn),
		newAnalysisListCmd(clientFn, outputFn),
		newAnalysisShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newAnalysisStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "start PROJECT_ID",
		Short: "Queue an analysis of the project's current tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			analysis, err := client.StartAnalysis(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Analysis started: %s", analysis.ID))
			out.Print(analysisHeaders, [][]string{analysisRow(analysis)}, analysis)
			return nil
		},
	}
}

func newAnalysisListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List analyses of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			analyses, err := client.ListAnalyses(args[0], status, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(analyses))
			for i := range analyses {
				rows[i] = analysisRow(&analyses[i])
			}

			out.Print(analysisHeaders, rows, analyses)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (QUEUED, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newAnalysisShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show analysis details and its schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			analysis, err := client.GetAnalysis(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(analysis)
				return nil
			}

			out.Table(analysisHeaders, [][]string{analysisRow(analysis)}, nil)
			if analysis.Result != nil {
				out.PrintResult(analysis.Result)
			}
			return nil
		},
	}
}
