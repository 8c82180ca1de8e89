package engraftment

import (
	"strings"

	"github.com/lizgehret/q2-fmt/internal/domain/model"
)

// AddBlankColumn returns a copy of table with a categorical column named
// name appended, every cell missing. table is not modified.
func AddBlankColumn(table *model.Table, name string) (*model.Table, error) {
	if table == nil {
		return nil, model.ErrInvalidTable
	}
	if strings.TrimSpace(name) == "" {
		return nil, model.ErrInvalidColumnName
	}
	if table.HasColumn(name) {
		return nil, &model.DuplicateColumnError{Name: name}
	}
	return table.WithColumn(model.Column{
		Name:  name,
		Kind:  model.Categorical,
		Cells: make([]model.Cell, table.Len()),
	})
}
