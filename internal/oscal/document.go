// Package oscal holds the typed model of an imported control catalog
// document and its structural validation. Only the fields the importer
// consumes are modeled; everything else in the source document is
// ignored on decode.
package oscal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Catalog Catalog `json:"catalog"`
}

type Catalog struct {
	UUID     string   `json:"uuid"`
	Metadata Metadata `json:"metadata"`
	Groups   []Group  `json:"groups"`
}

type Metadata struct {
	Title        string `json:"title"`
	Version      string `json:"version"`
	LastModified string `json:"last-modified"`
}

type Group struct {
	ID       string    `json:"id"`
	Class    string    `json:"class"`
	Title    string    `json:"title"`
	Controls []Control `json:"controls"`
}

type Control struct {
	ID       string    `json:"id"`
	Class    string    `json:"class"`
	Title    string    `json:"title"`
	Params   []Param   `json:"params"`
	Parts    []Part    `json:"parts"`
	Controls []Control `json:"controls"`
	Links    []Link    `json:"links"`
}

type Param struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Part struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Prose string `json:"prose"`
	Parts []Part `json:"parts"`
}

type Link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// SchemaError is the single fatal error class of an import: the
// document's top-level shape does not match, so nothing is persisted.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation at %s: %s", e.Path, e.Reason)
}

func schemaErrorf(path, format string, args ...any) *SchemaError {
	return &SchemaError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Parse decodes raw bytes into a Document and validates the subset of
// the catalog shape the importer depends on. Any failure is a
// *SchemaError.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, schemaErrorf("$", "invalid JSON: %v", err)
	}
	if err := validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func validate(doc *Document) error {
	cat := &doc.Catalog
	if strings.TrimSpace(cat.UUID) == "" {
		return schemaErrorf("catalog.uuid", "missing")
	}
	if _, err := uuid.Parse(cat.UUID); err != nil {
		return schemaErrorf("catalog.uuid", "not a UUID: %q", cat.UUID)
	}
	if strings.TrimSpace(cat.Metadata.Title) == "" {
		return schemaErrorf("catalog.metadata.title", "missing")
	}
	if strings.TrimSpace(cat.Metadata.Version) == "" {
		return schemaErrorf("catalog.metadata.version", "missing")
	}
	if cat.Metadata.LastModified != "" {
		if _, err := ParseLastModified(cat.Metadata.LastModified); err != nil {
			return schemaErrorf("catalog.metadata.last-modified", "not a date: %q", cat.Metadata.LastModified)
		}
	}
	if len(cat.Groups) == 0 {
		return schemaErrorf("catalog.groups", "missing or empty")
	}
	for gi, g := range cat.Groups {
		gPath := fmt.Sprintf("catalog.groups[%d]", gi)
		if strings.TrimSpace(g.ID) == "" {
			return schemaErrorf(gPath+".id", "missing")
		}
		if strings.TrimSpace(g.Title) == "" {
			return schemaErrorf(gPath+".title", "missing")
		}
		for ci, c := range g.Controls {
			if err := validateControl(fmt.Sprintf("%s.controls[%d]", gPath, ci), &c, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateControl(path string, c *Control, allowNested bool) error {
	if strings.TrimSpace(c.ID) == "" {
		return schemaErrorf(path+".id", "missing")
	}
	if strings.TrimSpace(c.Title) == "" {
		return schemaErrorf(path+".title", "missing")
	}
	for pi, p := range c.Params {
		if strings.TrimSpace(p.ID) == "" {
			return schemaErrorf(fmt.Sprintf("%s.params[%d].id", path, pi), "missing")
		}
	}
	if err := validateParts(path+".parts", c.Parts); err != nil {
		return err
	}
	if allowNested {
		for ei, e := range c.Controls {
			// Nested controls are enhancements: same shape, one level. Deeper
			// nesting is a recoverable import error, not a schema violation,
			// so it is still accepted here.
			if err := validateControl(fmt.Sprintf("%s.controls[%d]", path, ei), &e, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateParts(path string, parts []Part) error {
	for i, p := range parts {
		pPath := fmt.Sprintf("%s[%d]", path, i)
		if strings.TrimSpace(p.Name) == "" {
			return schemaErrorf(pPath+".name", "missing")
		}
		if err := validateParts(pPath+".parts", p.Parts); err != nil {
			return err
		}
	}
	return nil
}

// ParseLastModified accepts the date formats seen in source catalogs.
func ParseLastModified(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// Stats are the expected totals of a validated document, computed
// before any processing begins.
type Stats struct {
	Groups       int
	Controls     int
	Enhancements int
}

func (d *Document) Stats() Stats {
	var s Stats
	s.Groups = len(d.Catalog.Groups)
	for _, g := range d.Catalog.Groups {
		s.Controls += len(g.Controls)
		for _, c := range g.Controls {
			s.Enhancements += countNested(&c)
		}
	}
	return s
}

func countNested(c *Control) int {
	n := len(c.Controls)
	for _, e := range c.Controls {
		n += countNested(&e)
	}
	return n
}
