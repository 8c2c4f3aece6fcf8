package editor

import (
	"errors"
	"slices"
	"strings"

	"noticeboard/models"
)

var (
	ErrEmptyColumnName = errors.New("column name is empty")
	ErrDuplicateColumn = errors.New("column already exists")
)

// TableRef addresses a TABLE block. SubSectionID is empty for a block that
// sits directly in a section.
type TableRef struct {
	SectionID    string `json:"sectionId"`
	SubSectionID string `json:"subSectionId,omitempty"`
	BlockID      string `json:"blockId"`
}

func findTable(p *models.Page, ref TableRef) *models.TableBlock {
	block := findBlock(p, ref.SectionID, ref.SubSectionID, ref.BlockID)
	table, _ := block.(*models.TableBlock)
	return table
}

// AddTableColumn appends a column and seeds it with "" in every row. Names are
// trimmed and must be unique ignoring case.
func AddTableColumn(p *models.Page, ref TableRef, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyColumnName
	}
	table := findTable(p, ref)
	if table == nil {
		return nil
	}
	if table.TableData.HasColumn(name) {
		return ErrDuplicateColumn
	}
	table.TableData.Columns = append(table.TableData.Columns, name)
	for i := range table.TableData.Rows {
		if table.TableData.Rows[i] == nil {
			table.TableData.Rows[i] = map[string]string{}
		}
		table.TableData.Rows[i][name] = ""
	}
	return nil
}

// RemoveTableColumn drops the column and deletes its key from every row,
// including rows where it was never set.
func RemoveTableColumn(p *models.Page, ref TableRef, name string) {
	table := findTable(p, ref)
	if table == nil {
		return
	}
	i := slices.Index(table.TableData.Columns, name)
	if i < 0 {
		return
	}
	table.TableData.Columns = slices.Delete(table.TableData.Columns, i, i+1)
	for _, row := range table.TableData.Rows {
		delete(row, name)
	}
}

func AddTableRow(p *models.Page, ref TableRef) {
	if table := findTable(p, ref); table != nil {
		table.TableData.Rows = append(table.TableData.Rows, table.TableData.EmptyRow())
	}
}

// UpdateTableCell sets one cell. Unknown rows and columns are ignored so rows
// never gain keys that are not columns.
func UpdateTableCell(p *models.Page, ref TableRef, row int, column, value string) {
	table := findTable(p, ref)
	if table == nil || row < 0 || row >= len(table.TableData.Rows) {
		return
	}
	if !slices.Contains(table.TableData.Columns, column) {
		return
	}
	if table.TableData.Rows[row] == nil {
		table.TableData.Rows[row] = map[string]string{}
	}
	table.TableData.Rows[row][column] = value
}

func RemoveTableRow(p *models.Page, ref TableRef, row int) {
	table := findTable(p, ref)
	if table == nil || row < 0 || row >= len(table.TableData.Rows) {
		return
	}
	table.TableData.Rows = slices.Delete(table.TableData.Rows, row, row+1)
}
