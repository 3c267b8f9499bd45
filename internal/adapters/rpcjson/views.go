package rpcjson

import (
	"time"

	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
)

type catalogSummaryView struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Version      string         `json:"version"`
	LastModified string         `json:"lastModified"`
	Groups       []groupRefView `json:"groups"`
}

type groupRefView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Class string `json:"class,omitempty"`
}

type catalogPageView struct {
	Catalog     catalogView `json:"catalog"`
	TotalGroups int64       `json:"totalGroups"`
	HasMore     bool        `json:"hasMore"`
}

type catalogView struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Version      string      `json:"version"`
	LastModified string      `json:"lastModified"`
	Groups       []groupView `json:"groups"`
}

type groupView struct {
	ID       string               `json:"id"`
	Title    string               `json:"title"`
	Class    string               `json:"class,omitempty"`
	Controls []controlSummaryView `json:"controls"`
}

type groupPageView struct {
	Group         groupView `json:"group"`
	TotalControls int64     `json:"totalControls"`
	HasMore       bool      `json:"hasMore"`
}

type controlSummaryView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Class string `json:"class,omitempty"`
}

type controlDetailView struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Class        string            `json:"class,omitempty"`
	BaseControl  *string           `json:"baseControl,omitempty"`
	Parameters   []parameterView   `json:"parameters"`
	Parts        []partView        `json:"parts"`
	Enhancements []enhancementView `json:"enhancements"`
	Links        []linkView        `json:"links"`
}

type enhancementView struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Class      string          `json:"class,omitempty"`
	Parameters []parameterView `json:"parameters"`
	Parts      []partView      `json:"parts"`
}

type parameterView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type partView struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Prose string     `json:"prose,omitempty"`
	Parts []partView `json:"parts,omitempty"`
}

type linkView struct {
	Rel      string              `json:"rel"`
	Href     string              `json:"href"`
	Outgoing bool                `json:"outgoing"`
	External bool                `json:"external"`
	Other    *controlSummaryView `json:"other,omitempty"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toCatalogSummaryView(v domain.CatalogSummary) catalogSummaryView {
	groups := make([]groupRefView, 0, len(v.Groups))
	for _, g := range v.Groups {
		groups = append(groups, groupRefView{ID: g.SourceID, Title: g.Title, Class: g.Class})
	}
	return catalogSummaryView{
		ID:           v.ID,
		Title:        v.Title,
		Version:      v.Version,
		LastModified: formatDate(v.LastModified),
		Groups:       groups,
	}
}

func toCatalogPageView(v domain.CatalogPage) catalogPageView {
	groups := make([]groupView, 0, len(v.Catalog.Groups))
	for _, g := range v.Catalog.Groups {
		groups = append(groups, toGroupView(g))
	}
	return catalogPageView{
		Catalog: catalogView{
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

func toGroupView(v domain.Group) groupView {
	controls := make([]controlSummaryView, 0, len(v.Controls))
	for _, c := range v.Controls {
		controls = append(controls, controlSummaryView(c))
	}
	return groupView{ID: v.SourceID, Title: v.Title, Class: v.Class, Controls: controls}
}

func toGroupPageView(v domain.GroupPage) groupPageView {
	return groupPageView{
		Group:         toGroupView(v.Group),
		TotalControls: v.TotalControls,
		HasMore:       v.HasMore,
	}
}

func toControlDetailView(v domain.ControlDetail) controlDetailView {
	enhancements := make([]enhancementView, 0, len(v.Enhancements))
	for _, e := range v.Enhancements {
		enhancements = append(enhancements, enhancementView{
			ID:         e.Control.ID,
			Title:      e.Control.Title,
			Class:      e.Control.Class,
			Parameters: toParameterViews(e.Parameters),
			Parts:      toPartViews(e.Parts),
		})
	}
	links := make([]linkView, 0, len(v.Links))
	for _, l := range v.Links {
		lv := linkView{Rel: l.Rel, Href: l.Href, Outgoing: l.Outgoing, External: l.External}
		if !l.External {
			other := controlSummaryView(l.Other)
			lv.Other = &other
		}
		links = append(links, lv)
	}
	return controlDetailView{
		ID:           v.Control.ID,
		Title:        v.Control.Title,
		Class:        v.Control.Class,
		BaseControl:  v.Control.BaseControlID,
		Parameters:   toParameterViews(v.Parameters),
		Parts:        toPartViews(v.Parts),
		Enhancements: enhancements,
		Links:        links,
	}
}

func toParameterViews(params []domain.Parameter) []parameterView {
	out := make([]parameterView, 0, len(params))
	for _, p := range params {
		out = append(out, parameterView{ID: p.SourceID, Label: p.Label})
	}
	return out
}

func toPartViews(parts []domain.PartNode) []partView {
	out := make([]partView, 0, len(parts))
	for _, p := range parts {
		out = append(out, partView{ID: p.SourceID, Name: p.Name, Prose: p.Prose, Parts: toPartViews(p.Parts)})
	}
	return out
}
