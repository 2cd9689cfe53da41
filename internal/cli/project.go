package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Critpath/internal/domain"
	"github.com/shaiso/Critpath/internal/taskfile"
)

var projectHeaders = []string{"ID", "NAME", "TASKS", "SNAPSHOTS", "NEXT_SNAPSHOT", "CREATED"}

func projectRow(p *ProjectResponse) []string {
	snapshots := p.SnapshotCron
	if snapshots != "" {
		snapshots += " (" + p.Timezone + ")"
	}
	return []string{p.ID, p.Name, strconv.Itoa(p.TaskCount), snapshots, p.NextSnapshotAt, p.CreatedAt}
}

// NewProjectCmd создаёт группу команд для управления проектами.
func NewProjectCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(
		newProjectListCmd(clientFn, outputFn),
		newProjectCreateCmd(clientFn, outputFn),
		newProjectShowCmd(clientFn, outputFn),
		newProjectDeleteCmd(clientFn, outputFn),
		newProjectSetTasksCmd(clientFn, outputFn),
		newProjectTasksCmd(clientFn, outputFn),
		newProjectSnapshotsCmd(clientFn, outputFn),
	)

	return cmd
}

func newProjectListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			projects, err := client.ListProjects()
			if err != nil {
				return err
			}

			rows := make([][]string, len(projects))
			for i := range projects {
				rows[i] = projectRow(&projects[i])
			}

			out.Print(projectHeaders, rows, projects)
			return nil
		},
	}
}

func newProjectCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new project",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var tasks []domain.TaskRecord
			if file != "" {
				records, err := taskfile.Load(file)
				if err != nil {
					return err
				}
				tasks = records
			}

			project, err := client.CreateProject(name, tasks)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Project created: %s", project.ID))
			out.Print(projectHeaders, [][]string{projectRow(project)}, project)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name (required)")
	cmd.Flags().StringVar(&file, "file", "", "Initial task file (.json or .hcl)")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newProjectShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show project details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			project, err := client.GetProject(args[0])
			if err != nil {
				return err
			}

			headers := append(append([]string{}, projectHeaders...), "LAST_ANALYSIS")
			row := append(projectRow(project), project.LastAnalysisID)
			out.Print(headers, [][]string{row}, project)
			return nil
		},
	}
}

func newProjectDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a project and its analyses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteProject(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Project deleted: %s", args[0]))
			return nil
		},
	}
}

func newProjectSetTasksCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "set-tasks ID FILE",
		Short: "Replace the project's task list from a task file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := taskfile.Load(args[1])
			if err != nil {
				return err
			}

			project, err := client.SetProjectTasks(args[0], tasks)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Tasks updated: %d", project.TaskCount))
			return nil
		},
	}
}

func newProjectTasksCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks ID",
		Short: "Show the project's current task list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := client.GetProjectTasks(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				rows[i] = []string{
					fmt.Sprint(t["id"]),
					fmt.Sprint(t["duration"]),
					formatDependencies(t["dependencies"]),
				}
			}

			out.Print([]string{"ID", "DURATION", "DEPENDENCIES"}, rows, tasks)
			return nil
		},
	}
}

func newProjectSnapshotsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var cronExpr string
	var timezone string

	cmd := &cobra.Command{
		Use:   "snapshots ID",
		Short: "Configure scheduled baseline snapshots (empty --cron disables)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			project, err := client.SetSnapshots(args[0], SetSnapshotsRequest{
				Cron:     cronExpr,
				Timezone: timezone,
			})
			if err != nil {
				return err
			}

			if project.SnapshotCron == "" {
				out.Success("Snapshots disabled")
			} else {
				out.Success(fmt.Sprintf("Next snapshot: %s", project.NextSnapshotAt))
			}
			out.Print(projectHeaders, [][]string{projectRow(project)}, project)
			return nil
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression, e.g. \"0 9 * * 1-5\"")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "Timezone for the cron expression")

	return cmd
}

func formatDependencies(v any) string {
	list, ok := v.([]any)
	if !ok {
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = fmt.Sprint(item)
	}
	return strings.Join(parts, ", ")
}
