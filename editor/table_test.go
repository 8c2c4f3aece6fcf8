package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noticeboard/models"
)

func pageWithTable(t *testing.T) (*models.Page, TableRef) {
	t.Helper()
	p := models.NewPage()
	sec := AddSection(p)
	id, err := AddBlock(p, sec, "", models.FieldTable)
	require.NoError(t, err)
	return p, TableRef{SectionID: sec, BlockID: id}
}

func tableOf(p *models.Page, ref TableRef) *models.TableBlock {
	return findTable(p, ref)
}

func TestAddTableColumn(t *testing.T) {
	p, ref := pageWithTable(t)
	AddTableRow(p, ref)

	require.NoError(t, AddTableColumn(p, ref, "  Remarks "))

	table := tableOf(p, ref)
	assert.Equal(t, []string{"Item", "Details", "Remarks"}, table.TableData.Columns)
	for _, row := range table.TableData.Rows {
		assert.Equal(t, "", row["Remarks"])
		assert.Len(t, row, 3)
	}

	assert.ErrorIs(t, AddTableColumn(p, ref, "item"), ErrDuplicateColumn)
	assert.ErrorIs(t, AddTableColumn(p, ref, "   "), ErrEmptyColumnName)
}

func TestAddThenRemoveColumnRestoresRows(t *testing.T) {
	p, ref := pageWithTable(t)
	UpdateTableCell(p, ref, 0, "Item", "Fee")
	before := tableOf(p, ref).TableData.Clone()

	require.NoError(t, AddTableColumn(p, ref, "Remarks"))
	RemoveTableColumn(p, ref, "Remarks")

	assert.Equal(t, before, tableOf(p, ref).TableData)
}

func TestRemoveColumnClearsEveryRow(t *testing.T) {
	p, ref := pageWithTable(t)
	table := tableOf(p, ref)
	table.TableData.Rows = append(table.TableData.Rows, map[string]string{"Item": "only item"})

	RemoveTableColumn(p, ref, "Details")

	assert.Equal(t, []string{"Item"}, table.TableData.Columns)
	for _, row := range table.TableData.Rows {
		_, ok := row["Details"]
		assert.False(t, ok)
	}
}

func TestTableRowsAndCells(t *testing.T) {
	p, ref := pageWithTable(t)

	AddTableRow(p, ref)
	UpdateTableCell(p, ref, 1, "Details", "Rs. 100")
	UpdateTableCell(p, ref, 1, "Unknown", "x")
	UpdateTableCell(p, ref, 9, "Item", "x")

	table := tableOf(p, ref)
	require.Len(t, table.TableData.Rows, 2)
	assert.Equal(t, map[string]string{"Item": "", "Details": "Rs. 100"}, table.TableData.Rows[1])

	RemoveTableRow(p, ref, 0)
	RemoveTableRow(p, ref, 5)
	require.Len(t, table.TableData.Rows, 1)
	assert.Equal(t, "Rs. 100", table.TableData.Rows[0]["Details"])
}

func TestTableOpsOnNonTableAreNoops(t *testing.T) {
	p := models.NewPage()
	sec := AddSection(p)
	md, _ := AddBlock(p, sec, "", models.FieldMarkdown)
	ref := TableRef{SectionID: sec, BlockID: md}
	before := p.Clone()

	assert.NoError(t, AddTableColumn(p, ref, "X"))
	AddTableRow(p, ref)
	RemoveTableColumn(p, ref, "X")

	assert.Equal(t, before, p)
}
