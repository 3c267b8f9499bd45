package domain

import "time"

type Catalog struct {
	ID           string
	Title        string
	Version      string
	LastModified time.Time
	CreatedAt    time.Time
	Groups       []Group
}

type CatalogSummary struct {
	ID           string
	Title        string
	Version      string
	LastModified time.Time
	Groups       []GroupRef
}

// GroupRef is the shallow group view returned by catalog listings:
// identity and labels only, never controls.
type GroupRef struct {
	ID       uint
	SourceID string
	Title    string
	Class    string
}

type Group struct {
	ID        uint
	CatalogID string
	SourceID  string
	Title     string
	Class     string
	CreatedAt time.Time
	Controls  []ControlSummary
}

type Control struct {
	ID            string
	CatalogID     string
	GroupID       uint
	Title         string
	Class         string
	BaseControlID *string
	CreatedAt     time.Time
}

type ControlSummary struct {
	ID    string
	Title string
	Class string
}

type Parameter struct {
	ID        uint
	ControlID string
	SourceID  string
	Label     string
	Position  int
}

type Part struct {
	ID             uint
	ControlID      string
	SourceID       string
	ParentSourceID *string
	Name           string
	Prose          string
	Position       int
}

// PartNode is a Part with its children resolved, as served by the
// control detail view.
type PartNode struct {
	SourceID string
	Name     string
	Prose    string
	Parts    []PartNode
}

// ControlLink is a directed, typed reference between two controls. A
// link whose target equals its source marks a reference that points
// outside the control graph (external URL or unknown anchor).
type ControlLink struct {
	ID              uint
	SourceControlID string
	TargetControlID string
	Rel             string
	Href            string
}

// LinkView is a link joined with the other endpoint's basic fields.
type LinkView struct {
	Rel      string
	Href     string
	Other    ControlSummary
	Outgoing bool
	External bool
}

type ControlDetail struct {
	Control      Control
	Parameters   []Parameter
	Parts        []PartNode
	Enhancements []EnhancementDetail
	Links        []LinkView
}

type EnhancementDetail struct {
	Control    Control
	Parameters []Parameter
	Parts      []PartNode
}

type CatalogPage struct {
	Catalog     Catalog
	TotalGroups int64
	HasMore     bool
}

type GroupPage struct {
	Group         Group
	TotalControls int64
	HasMore       bool
}

type ImportErrorKind string

const (
	ImportErrorLink        ImportErrorKind = "link"
	ImportErrorPart        ImportErrorKind = "part"
	ImportErrorControl     ImportErrorKind = "control"
	ImportErrorEnhancement ImportErrorKind = "enhancement"
	ImportErrorGroup       ImportErrorKind = "group"
)

type ImportError struct {
	Kind    ImportErrorKind `json:"kind"`
	Message string          `json:"message"`
	Details string          `json:"details"`
}

type ImportStats struct {
	Groups       int `json:"groups"`
	Controls     int `json:"controls"`
	Parts        int `json:"parts"`
	Parameters   int `json:"parameters"`
	Enhancements int `json:"enhancements"`
	Links        int `json:"links"`
}

type ImportReport struct {
	Success        bool          `json:"success"`
	GroupsDone     int           `json:"groups_done"`
	GroupsTotal    int           `json:"groups_total"`
	ControlsDone   int           `json:"controls_done"`
	ControlsTotal  int           `json:"controls_total"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
	ControlsPerSec float64       `json:"controls_per_sec"`
	Stats          ImportStats   `json:"stats"`
	Errors         []ImportError `json:"errors"`
}

type ImportResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Details ImportDetails `json:"details"`
}

type ImportDetails struct {
	Duration string        `json:"duration"`
	Stats    ImportStats   `json:"stats"`
	Catalog  CatalogHeader `json:"catalog"`
	Errors   []ImportError `json:"errors,omitempty"`
}

type CatalogHeader struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version string `json:"version"`
}
