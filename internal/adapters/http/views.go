package http

import (
	"time"

	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
)

type catalogSummaryJSON struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Version      string         `json:"version"`
	LastModified string         `json:"lastModified"`
	Groups       []groupRefJSON `json:"groups"`
}

type groupRefJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Class string `json:"class,omitempty"`
}

type catalogPageJSON struct {
	Catalog     catalogJSON `json:"catalog"`
	TotalGroups int64       `json:"totalGroups"`
	HasMore     bool        `json:"hasMore"`
}

type catalogJSON struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Version      string      `json:"version"`
	LastModified string      `json:"lastModified"`
	Groups       []groupJSON `json:"groups"`
}

type groupJSON struct {
	ID       string               `json:"id"`
	Title    string               `json:"title"`
	Class    string               `json:"class,omitempty"`
	Controls []controlSummaryJSON `json:"controls"`
}

type groupPageJSON struct {
	Group         groupJSON `json:"group"`
	TotalControls int64     `json:"totalControls"`
	HasMore       bool      `json:"hasMore"`
}

type controlSummaryJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Class string `json:"class,omitempty"`
}

type controlDetailJSON struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Class        string            `json:"class,omitempty"`
	BaseControl  *string           `json:"baseControl,omitempty"`
	Parameters   []parameterJSON   `json:"parameters"`
	Parts        []partJSON        `json:"parts"`
	Enhancements []enhancementJSON `json:"enhancements"`
	Links        []linkJSON        `json:"links"`
}

type enhancementJSON struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Class      string          `json:"class,omitempty"`
	Parameters []parameterJSON `json:"parameters"`
	Parts      []partJSON      `json:"parts"`
}

type parameterJSON struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type partJSON struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Prose string     `json:"prose,omitempty"`
	Parts []partJSON `json:"parts,omitempty"`
}

type linkJSON struct {
	Rel      string              `json:"rel"`
	Href     string              `json:"href"`
	Outgoing bool                `json:"outgoing"`
	External bool                `json:"external"`
	Other    *controlSummaryJSON `json:"other,omitempty"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toCatalogSummaryJSON(v domain.CatalogSummary) catalogSummaryJSON {
	groups := make([]groupRefJSON, 0, len(v.Groups))
	for _, g := range v.Groups {
		groups = append(groups, groupRefJSON{ID: g.SourceID, Title: g.Title, Class: g.Class})
	}
	return catalogSummaryJSON{
		ID:           v.ID,
		Title:        v.Title,
		Version:      v.Version,
		LastModified: formatDate(v.LastModified),
		Groups:       groups,
	}
}

func toCatalogPageJSON(v domain.CatalogPage) catalogPageJSON {
	groups := make([]groupJSON, 0, len(v.Catalog.Groups))
	for _, g := range v.Catalog.Groups {
		groups = append(groups, toGroupJSON(g))
	}
	return catalogPageJSON{
		Catalog: catalogJSON{
			ID:           v.Catalog.ID,
			Title:        v.Catalog.Title,
			Version:      v.Catalog.Version,
			LastModified: formatDate(v.Catalog.LastModified),
			Groups:       groups,
		},
		TotalGroups: v.TotalGroups,
		HasMore:     v.HasMore,
	}
}

func toGroupJSON(v domain.Group) groupJSON {
	controls := make([]controlSummaryJSON, 0, len(v.Controls))
	for _, c := range v.Controls {
		controls = append(controls, toControlSummaryJSON(c))
	}
	return groupJSON{ID: v.SourceID, Title: v.Title, Class: v.Class, Controls: controls}
}

func toGroupPageJSON(v domain.GroupPage) groupPageJSON {
	return groupPageJSON{
		Group:         toGroupJSON(v.Group),
		TotalControls: v.TotalControls,
		HasMore:       v.HasMore,
	}
}

func toControlSummaryJSON(v domain.ControlSummary) controlSummaryJSON {
	return controlSummaryJSON{ID: v.ID, Title: v.Title, Class: v.Class}
}

func toControlDetailJSON(v domain.ControlDetail) controlDetailJSON {
	enhancements := make([]enhancementJSON, 0, len(v.Enhancements))
	for _, e := range v.Enhancements {
		enhancements = append(enhancements, enhancementJSON{
			ID:         e.Control.ID,
			Title:      e.Control.Title,
			Class:      e.Control.Class,
			Parameters: toParameterJSON(e.Parameters),
			Parts:      toPartJSON(e.Parts),
		})
	}
	links := make([]linkJSON, 0, len(v.Links))
	for _, l := range v.Links {
		lj := linkJSON{Rel: l.Rel, Href: l.Href, Outgoing: l.Outgoing, External: l.External}
		if !l.External {
			other := toControlSummaryJSON(l.Other)
			lj.Other = &other
		}
		links = append(links, lj)
	}
	return controlDetailJSON{
		ID:           v.Control.ID,
		Title:        v.Control.Title,
		Class:        v.Control.Class,
		BaseControl:  v.Control.BaseControlID,
		Parameters:   toParameterJSON(v.Parameters),
		Parts:        toPartJSON(v.Parts),
		Enhancements: enhancements,
		Links:        links,
	}
}

func toParameterJSON(params []domain.Parameter) []parameterJSON {
	out := make([]parameterJSON, 0, len(params))
	for _, p := range params {
		out = append(out, parameterJSON{ID: p.SourceID, Label: p.Label})
	}
	return out
}

func toPartJSON(parts []domain.PartNode) []partJSON {
	out := make([]partJSON, 0, len(parts))
	for _, p := range parts {
		out = append(out, partJSON{ID: p.SourceID, Name: p.Name, Prose: p.Prose, Parts: toPartJSON(p.Parts)})
	}
	return out
}
