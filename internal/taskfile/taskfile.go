package taskfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shaiso/Critpath/internal/domain"
	"github.com/shaiso/Critpath/internal/engine"
)

// ErrUnsupportedFormat — расширение файла не поддерживается.
var ErrUnsupportedFormat = errors.New("unsupported task file format")

// Load читает файл и возвращает записи задач.
func Load(path string) ([]domain.TaskRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	return Parse(data, path)
}

// Parse разбирает содержимое файла. Формат определяется по расширению filename.
func Parse(data []byte, filename string) ([]domain.TaskRecord, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return parseJSON(data)
	case ".hcl":
		return parseHCL(data, filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// parseJSON разбирает массив задач или объект с полем tasks.
func parseJSON(data []byte) ([]domain.TaskRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode json: unexpected data after task list")
	}

	if obj, ok := v.(map[string]any); ok {
		tasks, ok := obj["tasks"]
		if !ok {
			return nil, fmt.Errorf("decode json: object has no \"tasks\" field")
		}
		v = tasks
	}

	return engine.ToTaskRecords(v)
}
