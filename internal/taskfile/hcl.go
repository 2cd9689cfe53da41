package taskfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/shaiso/Critpath/internal/domain"
)

// hclTaskFile — верхний уровень HCL-файла задач.
type hclTaskFile struct {
	Tasks  []*hclTask `hcl:"task,block"`
	Remain hcl.Body   `hcl:",remain"`
}

// hclTask — блок task "<id>" { ... }.
// Атрибуты читаются как есть: отсутствующий duration должен
// дойти до валидатора отсутствующим.
type hclTask struct {
	ID   string   `hcl:"id,label"`
	Body hcl.Body `hcl:",remain"`
}

// parseHCL разбирает HCL-файл с блоками task.
func parseHCL(data []byte, filename string) ([]domain.TaskRecord, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root hclTaskFile
	diags = gohcl.DecodeBody(file.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	records := make([]domain.TaskRecord, 0, len(root.Tasks))
	for _, task := range root.Tasks {
		record, err := taskRecord(task)
		if err != nil {
			return nil, fmt.Errorf("task %q in %s: %w", task.ID, filename, err)
		}
		records = append(records, record)
	}

	return records, nil
}

// taskRecord переводит блок task в запись задачи.
func taskRecord(task *hclTask) (domain.TaskRecord, error) {
	attrs, diags := task.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	record := domain.TaskRecord{"id": task.ID}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("attribute %q: %w", name, diags)
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		record[name] = native
	}

	return record, nil
}

// ctyToNative переводит cty.Value в значение Go:
// number → float64, string, bool, list/tuple → []any, object/map → map[string]any.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()

	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("convert number: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		slice := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			slice = append(slice, native)
		}
		return slice, nil

	case ty.IsObjectType() || ty.IsMapType():
		m := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			m[key.AsString()] = native
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported value type: %s", ty.FriendlyName())
	}
}
