// Package schema is the closed-world validator for hand-edited page JSON.
//
// Every object is checked against an allow-list of keys; anything not listed
// is an error. Validation stops at the first problem and reports where it is.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"noticeboard/models"
)

// RootPath prefixes every reported path.
const RootPath = "Page"

type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Path + ": " + e.Reason
}

var (
	pageKeys = keySet("_id", "schemaVersion", "title", "slug", "description", "type", "status",
		"category", "importantDates", "publishedAt", "updatedAt", "displayConfig", "metadata", "sections")
	importantDatesKeys = keySet("startDateOfApplication", "lastDateOfApplication")
	sectionKeys        = keySet("_id", "title", "type", "children")
	subSectionKeys     = keySet("_id", "title", "type", "children")
	pairKeys           = keySet("_id", "type", "key", "value")
	markdownKeys       = keySet("_id", "type", "value")
	tableKeys          = keySet("_id", "type", "tableData")
	tableDataKeys      = keySet("columns", "rows")
)

func keySet(keys ...string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// ValidateJSON parses raw bytes and validates the result.
func ValidateJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return &ValidationError{Path: RootPath, Reason: "invalid JSON: " + err.Error()}
	}
	if dec.More() {
		return &ValidationError{Path: RootPath, Reason: "unexpected data after document"}
	}
	return Validate(v)
}

// ValidatePage checks a typed page by validating its JSON form.
func ValidatePage(p *models.Page) error {
	data, err := json.Marshal(p)
	if err != nil {
		return &ValidationError{Path: RootPath, Reason: err.Error()}
	}
	return ValidateJSON(data)
}

// Validate checks a decoded JSON value (maps, slices, strings, numbers as
// float64 or json.Number) against the page grammar. It returns nil or a
// *ValidationError.
func Validate(v any) error {
	w := walker{}
	return w.page(v)
}

type walker struct{}

func fail(path, format string, args ...any) error {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func (w walker) object(v any, path string, allowed map[string]bool) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fail(path, "must be an object")
	}
	for _, k := range sortedKeys(obj) {
		if !allowed[k] {
			return nil, fail(path, "unknown key %q", k)
		}
	}
	return obj, nil
}

func (w walker) page(v any) error {
	obj, err := w.object(v, RootPath, pageKeys)
	if err != nil {
		return err
	}
	for _, k := range []string{"title", "slug", "type", "sections"} {
		if _, ok := obj[k]; !ok {
			return fail(RootPath, "missing required key %q", k)
		}
	}
	if raw, ok := obj["_id"]; ok {
		if err := requireID(raw, RootPath+"._id"); err != nil {
			return err
		}
	}
	for _, k := range []string{"title", "slug", "description", "category", "publishedAt", "updatedAt"} {
		if raw, ok := obj[k]; ok {
			if _, err := str(raw, RootPath+"."+k); err != nil {
				return err
			}
		}
	}
	if raw, ok := obj["schemaVersion"]; ok {
		if err := positiveInt(raw, RootPath+".schemaVersion"); err != nil {
			return err
		}
	}
	t, err := str(obj["type"], RootPath+".type")
	if err != nil {
		return err
	}
	if !models.PageType(t).Valid() {
		return fail(RootPath+".type", "unknown page type %q", t)
	}
	if raw, ok := obj["status"]; ok {
		s, err := str(raw, RootPath+".status")
		if err != nil {
			return err
		}
		if !models.PageStatus(s).Valid() {
			return fail(RootPath+".status", "unknown page status %q", s)
		}
	}
	if raw, ok := obj["importantDates"]; ok && raw != nil {
		path := RootPath + ".importantDates"
		dates, err := w.object(raw, path, importantDatesKeys)
		if err != nil {
			return err
		}
		for _, k := range sortedKeys(dates) {
			if _, err := str(dates[k], path+"."+k); err != nil {
				return err
			}
		}
	}
	for _, k := range []string{"displayConfig", "metadata"} {
		if raw, ok := obj[k]; ok && raw != nil {
			if _, ok := raw.(map[string]any); !ok {
				return fail(RootPath+"."+k, "must be an object")
			}
		}
	}

	sections, ok := obj["sections"].([]any)
	if !ok {
		return fail(RootPath+".sections", "must be an array")
	}
	seen := map[string]bool{}
	for i, s := range sections {
		path := fmt.Sprintf("%s.sections[%d]", RootPath, i)
		id, err := w.section(s, path)
		if err != nil {
			return err
		}
		if seen[id] {
			return fail(path+"._id", "duplicate id %q", id)
		}
		seen[id] = true
	}
	return nil
}

func (w walker) section(v any, path string) (string, error) {
	obj, err := w.object(v, path, sectionKeys)
	if err != nil {
		return "", err
	}
	if err := requireKeys(obj, path, "_id", "title", "type", "children"); err != nil {
		return "", err
	}
	if err := requireID(obj["_id"], path+"._id"); err != nil {
		return "", err
	}
	if _, err := str(obj["title"], path+".title"); err != nil {
		return "", err
	}
	t, err := str(obj["type"], path+".type")
	if err != nil {
		return "", err
	}
	if t != models.SectionTypeTag {
		return "", fail(path+".type", "must be %q", models.SectionTypeTag)
	}
	children, ok := obj["children"].([]any)
	if !ok {
		return "", fail(path+".children", "must be an array")
	}
	seen := map[string]bool{}
	for i, c := range children {
		cpath := fmt.Sprintf("%s.children[%d]", path, i)
		id, err := w.child(c, cpath, true)
		if err != nil {
			return "", err
		}
		if seen[id] {
			return "", fail(cpath+"._id", "duplicate id %q", id)
		}
		seen[id] = true
	}
	return obj["_id"].(string), nil
}

// child validates one entry of a children array and returns its id.
// allowSub is false inside a sub-section.
func (w walker) child(v any, path string, allowSub bool) (string, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", fail(path, "must be an object")
	}
	rawType, ok := obj["type"]
	if !ok {
		return "", fail(path, "missing required key %q", "type")
	}
	t, err := str(rawType, path+".type")
	if err != nil {
		return "", err
	}
	ft, err := models.ParseFieldType(t)
	if err != nil {
		return "", fail(path, "unknown type %q", t)
	}

	switch ft {
	case models.FieldKeyValue, models.FieldDate, models.FieldLink:
		err = w.pair(obj, path)
	case models.FieldMarkdown:
		err = w.markdown(obj, path)
	case models.FieldTable:
		err = w.table(obj, path)
	case models.FieldSubSection:
		if !allowSub {
			return "", fail(path, "sub-section cannot be nested inside a sub-section")
		}
		err = w.subSection(obj, path)
	}
	if err != nil {
		return "", err
	}
	return obj["_id"].(string), nil
}

func (w walker) pair(v any, path string) error {
	obj, err := w.object(v, path, pairKeys)
	if err != nil {
		return err
	}
	if err := requireKeys(obj, path, "_id", "key", "value"); err != nil {
		return err
	}
	if err := requireID(obj["_id"], path+"._id"); err != nil {
		return err
	}
	if _, err := str(obj["key"], path+".key"); err != nil {
		return err
	}
	_, err = str(obj["value"], path+".value")
	return err
}

func (w walker) markdown(v any, path string) error {
	obj, err := w.object(v, path, markdownKeys)
	if err != nil {
		return err
	}
	if err := requireKeys(obj, path, "_id", "value"); err != nil {
		return err
	}
	if err := requireID(obj["_id"], path+"._id"); err != nil {
		return err
	}
	_, err = str(obj["value"], path+".value")
	return err
}

func (w walker) table(v any, path string) error {
	obj, err := w.object(v, path, tableKeys)
	if err != nil {
		return err
	}
	if err := requireKeys(obj, path, "_id", "tableData"); err != nil {
		return err
	}
	if err := requireID(obj["_id"], path+"._id"); err != nil {
		return err
	}
	dpath := path + ".tableData"
	data, err := w.object(obj["tableData"], dpath, tableDataKeys)
	if err != nil {
		return err
	}
	if err := requireKeys(data, dpath, "columns", "rows"); err != nil {
		return err
	}
	cols, ok := data["columns"].([]any)
	if !ok {
		return fail(dpath+".columns", "must be an array")
	}
	columns := map[string]bool{}
	folded := map[string]bool{}
	for i, c := range cols {
		cpath := fmt.Sprintf("%s.columns[%d]", dpath, i)
		name, err := str(c, cpath)
		if err != nil {
			return err
		}
		if strings.TrimSpace(name) == "" {
			return fail(cpath, "column name is empty")
		}
		key := strings.ToLower(name)
		if folded[key] {
			return fail(cpath, "duplicate column %q", name)
		}
		folded[key] = true
		columns[name] = true
	}
	rows, ok := data["rows"].([]any)
	if !ok {
		return fail(dpath+".rows", "must be an array")
	}
	for i, r := range rows {
		rpath := fmt.Sprintf("%s.rows[%d]", dpath, i)
		row, ok := r.(map[string]any)
		if !ok {
			return fail(rpath, "must be an object")
		}
		for _, k := range sortedKeys(row) {
			if !columns[k] {
				return fail(rpath, "unknown column %q", k)
			}
			if _, err := str(row[k], rpath+"."+k); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w walker) subSection(v any, path string) error {
	obj, err := w.object(v, path, subSectionKeys)
	if err != nil {
		return err
	}
	if err := requireKeys(obj, path, "_id", "title", "children"); err != nil {
		return err
	}
	if err := requireID(obj["_id"], path+"._id"); err != nil {
		return err
	}
	if _, err := str(obj["title"], path+".title"); err != nil {
		return err
	}
	children, ok := obj["children"].([]any)
	if !ok {
		return fail(path+".children", "must be an array")
	}
	seen := map[string]bool{}
	for i, c := range children {
		cpath := fmt.Sprintf("%s.children[%d]", path, i)
		id, err := w.child(c, cpath, false)
		if err != nil {
			return err
		}
		if seen[id] {
			return fail(cpath+"._id", "duplicate id %q", id)
		}
		seen[id] = true
	}
	return nil
}

func requireKeys(obj map[string]any, path string, keys ...string) error {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return fail(path, "missing required key %q", k)
		}
	}
	return nil
}

func requireID(v any, path string) error {
	id, err := str(v, path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fail(path, "must not be empty")
	}
	return nil
}

func str(v any, path string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fail(path, "must be a string")
	}
	return s, nil
}

func positiveInt(v any, path string) error {
	var f float64
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return fail(path, "must be an integer")
		}
		f = float64(i)
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return fail(path, "must be an integer")
	}
	if f != math.Trunc(f) || f < 1 {
		return fail(path, "must be a positive integer")
	}
	return nil
}
