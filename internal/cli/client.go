package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/Critpath/internal/domain"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ProjectResponse — проект из API.
type ProjectResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TaskCount      int    `json:"task_count"`
	SnapshotCron   string `json:"snapshot_cron,omitempty"`
	Timezone       string `json:"timezone"`
	NextSnapshotAt string `json:"next_snapshot_at,omitempty"`
	LastSnapshotAt string `json:"last_snapshot_at,omitempty"`
	LastAnalysisID string `json:"last_analysis_id,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// AnalysisResponse — анализ из API.
type AnalysisResponse struct {
	ID             string         `json:"id"`
	ProjectID      string         `json:"project_id"`
	Status         string         `json:"status"`
	Trigger        string         `json:"trigger"`
	TaskCount      int            `json:"task_count"`
	Result         *domain.Result `json:"result,omitempty"`
	ErrorKind      string         `json:"error_kind,omitempty"`
	Error          string         `json:"error,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	CreatedAt      string         `json:"created_at"`
	StartedAt      string         `json:"started_at,omitempty"`
	FinishedAt     string         `json:"finished_at,omitempty"`
}

// --- Request types ---

// SetSnapshotsRequest — настройка плановых снимков.
type SetSnapshotsRequest struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone,omitempty"`
}

type tasksRequest struct {
	Tasks []domain.TaskRecord `json:"tasks"`
}

// envelope — {"data": ...} и {"data": [...], "total": N} API.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// APIError — ошибка из конверта {"error": {...}}.
type APIError struct {
	Status  int      `json:"-"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Tasks   []string `json:"tasks,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.Status)
	}
	msg := e.Code + ": " + e.Message
	if len(e.Tasks) > 0 {
		msg += " (tasks: " + strings.Join(e.Tasks, ", ") + ")"
	}
	return msg
}

// --- Client ---

// Client — HTTP-клиент для Critpath API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Analyze ---

// Analyze считает расписание на сервере без сохранения.
func (c *Client) Analyze(tasks []domain.TaskRecord) (*domain.Result, error) {
	var result domain.Result
	err := c.post("/api/v1/analyze", tasksRequest{Tasks: tasks}, &result)
	return &result, err
}

// --- Projects ---

// ListProjects возвращает все проекты.
func (c *Client) ListProjects() ([]ProjectResponse, error) {
	var projects []ProjectResponse
	err := c.list("/api/v1/projects", nil, &projects)
	return projects, err
}

// CreateProject создаёт проект. tasks может быть nil.
func (c *Client) CreateProject(name string, tasks []domain.TaskRecord) (*ProjectResponse, error) {
	body := map[string]any{"name": name}
	if tasks != nil {
		body["tasks"] = tasks
	}
	var project ProjectResponse
	err := c.post("/api/v1/projects", body, &project)
	return &project, err
}

// GetProject возвращает проект по ID.
func (c *Client) GetProject(id string) (*ProjectResponse, error) {
	var project ProjectResponse
	err := c.get("/api/v1/projects/"+id, &project)
	return &project, err
}

// DeleteProject удаляет проект.
func (c *Client) DeleteProject(id string) error {
	return c.delete("/api/v1/projects/" + id)
}

// GetProjectTasks возвращает текущий список задач проекта.
func (c *Client) GetProjectTasks(id string) ([]domain.TaskRecord, error) {
	var tasks []domain.TaskRecord
	err := c.list("/api/v1/projects/"+id+"/tasks", nil, &tasks)
	return tasks, err
}

// SetProjectTasks заменяет список задач проекта.
func (c *Client) SetProjectTasks(id string, tasks []domain.TaskRecord) (*ProjectResponse, error) {
	var project ProjectResponse
	err := c.put("/api/v1/projects/"+id+"/tasks", tasksRequest{Tasks: tasks}, &project)
	return &project, err
}

// SetSnapshots настраивает плановые снимки. Пустой cron выключает их.
func (c *Client) SetSnapshots(id string, req SetSnapshotsRequest) (*ProjectResponse, error) {
	var project ProjectResponse
	err := c.put("/api/v1/projects/"+id+"/snapshots", req, &project)
	return &project, err
}

// --- Analyses ---

// StartAnalysis ставит анализ проекта в очередь.
func (c *Client) StartAnalysis(projectID string) (*AnalysisResponse, error) {
	var analysis AnalysisResponse
	err := c.post("/api/v1/projects/"+projectID+"/analyses", nil, &analysis)
	return &analysis, err
}

// ListAnalyses возвращает анализы проекта. Если status не пустой — фильтрует.
func (c *Client) ListAnalyses(projectID, status string, limit int) ([]AnalysisResponse, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var analyses []AnalysisResponse
	err := c.list("/api/v1/projects/"+projectID+"/analyses", params, &analyses)
	return analyses, err
}

// GetAnalysis возвращает анализ по ID.
func (c *Client) GetAnalysis(id string) (*AnalysisResponse, error) {
	var analysis AnalysisResponse
	err := c.get("/api/v1/analyses/"+id, &analysis)
	return &analysis, err
}

// --- HTTP ---

func (c *Client) get(path string, out any) error {
	return c.call(http.MethodGet, path, nil, nil, out)
}

func (c *Client) post(path string, body, out any) error {
	return c.call(http.MethodPost, path, nil, body, out)
}

func (c *Client) put(path string, body, out any) error {
	return c.call(http.MethodPut, path, nil, body, out)
}

func (c *Client) delete(path string) error {
	return c.call(http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) list(path string, query url.Values, out any) error {
	return c.call(http.MethodGet, path, query, nil, out)
}

// call выполняет запрос и раскладывает поле data ответа в out.
// Ответ 4xx/5xx превращается в *APIError.
func (c *Client) call(method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, target, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error APIError `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		body.Error.Status = resp.StatusCode
		apiErr = &body.Error
	}
	return apiErr
}
