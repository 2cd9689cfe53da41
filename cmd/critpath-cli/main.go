// Critpath CLI — расчёт критического пути и управление проектами
// через HTTP API.
//
// Использование:
//
//	critpath [--api-url URL] [--json] <command> [args] [flags]
//
// Команды:
//
//	analyze   Расчёт расписания по файлу задач (.json, .hcl)
//	project   Управление проектами
//	analysis  Анализы проектов
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Critpath/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "critpath",
		Short:         "Critpath CLI — critical path scheduling",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewAnalyzeCmd(clientFn, outputFn),
		cli.NewProjectCmd(clientFn, outputFn),
		cli.NewAnalysisCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
