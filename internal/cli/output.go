package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/shaiso/Critpath/internal/domain"
)

var (
	borderColor   = lipgloss.Color("#6C6C6C")
	criticalColor = lipgloss.Color("#FF6B6B")

	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	criticalStyle = cellStyle.Foreground(criticalColor).Bold(true)
	titleStyle    = lipgloss.NewStyle().Bold(true)
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return newOutput(jsonMode, os.Stdout, os.Stderr)
}

func newOutput(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        w,
		errW:     errW,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows, nil)
}

// Table выводит таблицу. Строки, для которых highlight возвращает true,
// выделяются цветом.
func (o *Output) Table(headers []string, rows [][]string, highlight func(row int) bool) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case highlight != nil && highlight(row):
				return criticalStyle
			default:
				return cellStyle
			}
		})

	fmt.Fprintln(o.w, t.Render())
}

// PrintResult выводит результат анализа: расписание задач, события,
// длительность проекта и критический путь.
func (o *Output) PrintResult(result *domain.Result) {
	if o.jsonMode {
		o.JSON(result)
		return
	}

	rows := make([][]string, len(result.Tasks))
	for i, t := range result.Tasks {
		rows[i] = []string{
			t.ID,
			formatNumber(t.Duration),
			formatNumber(t.ES),
			formatNumber(t.EF),
			formatNumber(t.LS),
			formatNumber(t.LF),
			formatNumber(t.Slack),
			yesNo(t.Critical),
		}
	}

	fmt.Fprintln(o.w, titleStyle.Render("Schedule"))
	o.Table(
		[]string{"TASK", "DURATION", "ES", "EF", "LS", "LF", "SLACK", "CRITICAL"},
		rows,
		func(row int) bool { return result.Tasks[row].Critical },
	)

	nodeRows := make([][]string, len(result.Nodes))
	for i, n := range result.Nodes {
		nodeRows[i] = []string{
			n.Node,
			formatNumber(n.Earliest),
			formatNumber(n.Latest),
			strings.Join(n.Members, ", "),
		}
	}

	fmt.Fprintln(o.w, titleStyle.Render("Events"))
	o.Table([]string{"NODE", "EARLIEST", "LATEST", "MEMBERS"}, nodeRows, nil)

	fmt.Fprintf(o.w, "Project duration: %s\n", formatNumber(result.ProjectDuration))
	fmt.Fprintf(o.w, "Critical path: %s\n", strings.Join(result.CriticalPath(), " -> "))
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
