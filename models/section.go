package models

import (
	"encoding/json"
	"fmt"
)

type Section struct {
	ID       string         `json:"_id"`
	Title    string         `json:"title"`
	Children []SectionChild `json:"children"`
}

// SubSection groups blocks inside a section. It holds blocks only.
type SubSection struct {
	ID       string  `json:"_id"`
	Title    string  `json:"title"`
	Children []Block `json:"children"`
}

func NewSection(title string) Section {
	return Section{ID: NewID(), Title: title, Children: []SectionChild{}}
}

func NewSubSection(title string) *SubSection {
	return &SubSection{ID: NewID(), Title: title, Children: []Block{}}
}

func (s Section) Clone() Section {
	cp := Section{ID: s.ID, Title: s.Title, Children: make([]SectionChild, len(s.Children))}
	for i, child := range s.Children {
		cp.Children[i] = child.cloneChild()
	}
	return cp
}

// FindChild returns the index of the direct child with the given id, or -1.
func (s *Section) FindChild(id string) int {
	for i, child := range s.Children {
		if child.GetID() == id {
			return i
		}
	}
	return -1
}

// CountSubSections is used to number new sub-sections.
func (s *Section) CountSubSections() int {
	n := 0
	for _, child := range s.Children {
		if child.Kind() == FieldSubSection {
			n++
		}
	}
	return n
}

func (s Section) MarshalJSON() ([]byte, error) {
	children := s.Children
	if children == nil {
		children = []SectionChild{}
	}
	return json.Marshal(struct {
		ID       string         `json:"_id"`
		Title    string         `json:"title"`
		Type     string         `json:"type"`
		Children []SectionChild `json:"children"`
	}{s.ID, s.Title, SectionTypeTag, children})
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string            `json:"_id"`
		Title    string            `json:"title"`
		Children []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID, s.Title = raw.ID, raw.Title
	s.Children = make([]SectionChild, 0, len(raw.Children))
	for i, rc := range raw.Children {
		child, err := decodeChild(rc)
		if err != nil {
			return fmt.Errorf("children[%d]: %w", i, err)
		}
		s.Children = append(s.Children, child)
	}
	return nil
}

func (s *SubSection) GetID() string                    { return s.ID }
func (s *SubSection) Kind() FieldType                  { return FieldSubSection }
func (s *SubSection) AcceptChild(v ChildVisitor) error { return v.VisitSubSection(s) }

func (s *SubSection) cloneChild() SectionChild {
	cp := &SubSection{ID: s.ID, Title: s.Title, Children: make([]Block, len(s.Children))}
	for i, b := range s.Children {
		cp.Children[i] = b.cloneBlock()
	}
	return cp
}

func (s *SubSection) FindChild(id string) int {
	for i, b := range s.Children {
		if b.GetID() == id {
			return i
		}
	}
	return -1
}

func (s *SubSection) MarshalJSON() ([]byte, error) {
	children := s.Children
	if children == nil {
		children = []Block{}
	}
	return json.Marshal(struct {
		ID       string    `json:"_id"`
		Title    string    `json:"title"`
		Type     FieldType `json:"type"`
		Children []Block   `json:"children"`
	}{s.ID, s.Title, FieldSubSection, children})
}

func (s *SubSection) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string            `json:"_id"`
		Title    string            `json:"title"`
		Children []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID, s.Title = raw.ID, raw.Title
	s.Children = make([]Block, 0, len(raw.Children))
	for i, rc := range raw.Children {
		b, err := decodeBlock(rc)
		if err != nil {
			return fmt.Errorf("children[%d]: %w", i, err)
		}
		s.Children = append(s.Children, b)
	}
	return nil
}
