// Package editor holds the tree mutation engine and the document store that
// serialises edits to a page.
//
// Engine functions mutate the page they are given. Ids that do not resolve
// are ignored: the call leaves the page as it was and reports no error. The
// only hard failure is asking AddBlock for a type that is not a leaf block.
package editor

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"noticeboard/models"
)

var ErrUnsupportedBlockType = errors.New("unsupported block type")

type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return 0, fmt.Errorf("invalid direction %q", s)
}

// BlockPatch is a partial update for a leaf block. Fields the block's variant
// does not carry are ignored.
type BlockPatch struct {
	Key       *string           `json:"key,omitempty"`
	Value     *string           `json:"value,omitempty"`
	TableData *models.TableData `json:"tableData,omitempty"`
}

// AddSection appends "Section N" where N is the current section count plus one,
// and returns the new section id.
func AddSection(p *models.Page) string {
	s := models.NewSection("Section " + strconv.Itoa(len(p.Sections)+1))
	p.Sections = append(p.Sections, s)
	return s.ID
}

func UpdateSection(p *models.Page, sectionID, title string) {
	if i := p.FindSection(sectionID); i >= 0 {
		p.Sections[i].Title = title
	}
}

func DeleteSection(p *models.Page, sectionID string) {
	if i := p.FindSection(sectionID); i >= 0 {
		p.Sections = slices.Delete(p.Sections, i, i+1)
	}
}

// MoveSection swaps the section at index with its neighbour in dir.
func MoveSection(p *models.Page, index int, dir Direction) {
	swapNeighbour(p.Sections, index, dir)
}

// ReorderSections removes the section at from and reinserts it at to,
// where to is an index into the list after removal.
func ReorderSections(p *models.Page, from, to int) {
	p.Sections = splice(p.Sections, from, to)
}

// AddSubSection appends "Sub-Section N" to a section, N being the number of
// sub-sections it already holds plus one.
func AddSubSection(p *models.Page, sectionID string) string {
	i := p.FindSection(sectionID)
	if i < 0 {
		return ""
	}
	sec := &p.Sections[i]
	sub := models.NewSubSection("Sub-Section " + strconv.Itoa(sec.CountSubSections()+1))
	sec.Children = append(sec.Children, sub)
	return sub.ID
}

func UpdateSubSection(p *models.Page, sectionID, subSectionID, title string) {
	if sub := findSubSection(p, sectionID, subSectionID); sub != nil {
		sub.Title = title
	}
}

// AddBlock appends a new block of type t to a section, or to one of its
// sub-sections when subSectionID is set. It returns the new block id, which is
// empty when the container does not exist.
func AddBlock(p *models.Page, sectionID, subSectionID string, t models.FieldType) (string, error) {
	if !t.IsBlock() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBlockType, t)
	}
	block, err := models.NewBlock(t)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBlockType, t)
	}

	i := p.FindSection(sectionID)
	if i < 0 {
		return "", nil
	}
	if subSectionID != "" {
		sub := findSubSection(p, sectionID, subSectionID)
		if sub == nil {
			return "", nil
		}
		sub.Children = append(sub.Children, block)
		return block.GetID(), nil
	}
	p.Sections[i].Children = append(p.Sections[i].Children, block)
	return block.GetID(), nil
}

// UpdateBlock applies patch to a leaf block. Addressing a sub-section as a
// block does nothing.
func UpdateBlock(p *models.Page, sectionID, subSectionID, blockID string, patch BlockPatch) {
	block := findBlock(p, sectionID, subSectionID, blockID)
	if block == nil {
		return
	}
	_ = block.AcceptBlock(patchApplier{patch})
}

// DeleteChild removes a direct child of the section (block or sub-section),
// or a block of the given sub-section.
func DeleteChild(p *models.Page, sectionID, subSectionID, childID string) {
	i := p.FindSection(sectionID)
	if i < 0 {
		return
	}
	if subSectionID != "" {
		sub := findSubSection(p, sectionID, subSectionID)
		if sub == nil {
			return
		}
		if j := sub.FindChild(childID); j >= 0 {
			sub.Children = slices.Delete(sub.Children, j, j+1)
		}
		return
	}
	sec := &p.Sections[i]
	if j := sec.FindChild(childID); j >= 0 {
		sec.Children = slices.Delete(sec.Children, j, j+1)
	}
}

func MoveChild(p *models.Page, sectionID, subSectionID string, index int, dir Direction) {
	i := p.FindSection(sectionID)
	if i < 0 {
		return
	}
	if subSectionID != "" {
		if sub := findSubSection(p, sectionID, subSectionID); sub != nil {
			swapNeighbour(sub.Children, index, dir)
		}
		return
	}
	swapNeighbour(p.Sections[i].Children, index, dir)
}

// ReorderChildren splices within one container only; it never moves a child
// between a section and a sub-section.
func ReorderChildren(p *models.Page, sectionID, subSectionID string, from, to int) {
	i := p.FindSection(sectionID)
	if i < 0 {
		return
	}
	if subSectionID != "" {
		if sub := findSubSection(p, sectionID, subSectionID); sub != nil {
			sub.Children = splice(sub.Children, from, to)
		}
		return
	}
	p.Sections[i].Children = splice(p.Sections[i].Children, from, to)
}

// UpdateMetadata merges patch into the top-level fields and refreshes updatedAt.
// Type, status or schema version values outside their allowed sets are skipped.
func UpdateMetadata(p *models.Page, patch models.MetadataPatch) {
	if patch.Type != nil && !patch.Type.Valid() {
		patch.Type = nil
	}
	if patch.Status != nil && !patch.Status.Valid() {
		patch.Status = nil
	}
	if patch.SchemaVersion != nil && *patch.SchemaVersion < 1 {
		patch.SchemaVersion = nil
	}
	patch.Apply(p)
	p.UpdatedAt = models.Now()
}

func findSubSection(p *models.Page, sectionID, subSectionID string) *models.SubSection {
	i := p.FindSection(sectionID)
	if i < 0 {
		return nil
	}
	sec := &p.Sections[i]
	j := sec.FindChild(subSectionID)
	if j < 0 {
		return nil
	}
	sub, _ := sec.Children[j].(*models.SubSection)
	return sub
}

func findBlock(p *models.Page, sectionID, subSectionID, blockID string) models.Block {
	if subSectionID != "" {
		sub := findSubSection(p, sectionID, subSectionID)
		if sub == nil {
			return nil
		}
		if j := sub.FindChild(blockID); j >= 0 {
			return sub.Children[j]
		}
		return nil
	}
	i := p.FindSection(sectionID)
	if i < 0 {
		return nil
	}
	sec := &p.Sections[i]
	j := sec.FindChild(blockID)
	if j < 0 {
		return nil
	}
	block, _ := sec.Children[j].(models.Block)
	return block
}

func swapNeighbour[T any](items []T, index int, dir Direction) {
	target := index + int(dir)
	if index < 0 || index >= len(items) || target < 0 || target >= len(items) {
		return
	}
	items[index], items[target] = items[target], items[index]
}

func splice[T any](items []T, from, to int) []T {
	if from < 0 || from >= len(items) {
		return items
	}
	moved := items[from]
	items = slices.Delete(items, from, from+1)
	to = max(0, min(to, len(items)))
	return slices.Insert(items, to, moved)
}

type patchApplier struct {
	patch BlockPatch
}

func (a patchApplier) keyValue(key, value *string) {
	if a.patch.Key != nil {
		*key = *a.patch.Key
	}
	if a.patch.Value != nil {
		*value = *a.patch.Value
	}
}

func (a patchApplier) VisitKeyValue(b *models.KeyValueBlock) error {
	a.keyValue(&b.Key, &b.Value)
	return nil
}

func (a patchApplier) VisitDate(b *models.DateBlock) error {
	a.keyValue(&b.Key, &b.Value)
	return nil
}

func (a patchApplier) VisitLink(b *models.LinkBlock) error {
	a.keyValue(&b.Key, &b.Value)
	return nil
}

func (a patchApplier) VisitMarkdown(b *models.MarkdownBlock) error {
	if a.patch.Value != nil {
		b.Value = *a.patch.Value
	}
	return nil
}

func (a patchApplier) VisitTable(b *models.TableBlock) error {
	if a.patch.TableData != nil {
		b.TableData = a.patch.TableData.Sanitized()
	}
	return nil
}
