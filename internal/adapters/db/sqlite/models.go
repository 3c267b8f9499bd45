package sqlite

import "time"

type CatalogModel struct {
	ID           string `gorm:"primaryKey"`
	Title        string `gorm:"not null"`
	Version      string `gorm:"not null"`
	LastModified time.Time
	CreatedAt    time.Time
}

func (CatalogModel) TableName() string { return "catalogs" }

type GroupModel struct {
	ID        uint   `gorm:"primaryKey"`
	CatalogID string `gorm:"not null;index:idx_catalog_group,unique"`
	SourceID  string `gorm:"not null;index:idx_catalog_group,unique"`
	Title     string `gorm:"not null;index"`
	Class     string
	CreatedAt time.Time
}

func (GroupModel) TableName() string { return "groups" }

type ControlModel struct {
	ID            string `gorm:"primaryKey"`
	CatalogID     string `gorm:"not null;index"`
	GroupID       uint   `gorm:"not null;index"`
	Title         string `gorm:"not null"`
	Class         string
	BaseControlID *string `gorm:"index"`
	CreatedAt     time.Time
}

func (ControlModel) TableName() string { return "controls" }

type ParameterModel struct {
	ID        uint   `gorm:"primaryKey"`
	ControlID string `gorm:"not null;index"`
	SourceID  string `gorm:"not null"`
	Label     string `gorm:"not null;default:''"`
	Position  int    `gorm:"not null;default:0"`
}

func (ParameterModel) TableName() string { return "parameters" }

type PartModel struct {
	ID             uint   `gorm:"primaryKey"`
	ControlID      string `gorm:"not null;index"`
	SourceID       string `gorm:"not null"`
	ParentSourceID *string
	Name           string `gorm:"not null"`
	Prose          string
	Position       int `gorm:"not null;default:0"`
}

func (PartModel) TableName() string { return "parts" }

type ControlLinkModel struct {
	ID              uint   `gorm:"primaryKey"`
	SourceControlID string `gorm:"not null;index"`
	TargetControlID string `gorm:"not null;index"`
	Rel             string `gorm:"not null"`
	Href            string `gorm:"not null"`
}

func (ControlLinkModel) TableName() string { return "control_links" }
