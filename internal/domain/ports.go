package domain

import "context"

// CatalogRepository is the persistence port for the control graph.
// Transaction runs fn against a repository bound to a single database
// transaction; the importer uses it to isolate each group.
type CatalogRepository interface {
	Transaction(ctx context.Context, fn func(tx CatalogRepository) error) error

	CreateCatalog(ctx context.Context, value Catalog) (Catalog, error)
	CreateGroup(ctx context.Context, value Group) (Group, error)
	CreateControls(ctx context.Context, values []Control) error
	CreateParameters(ctx context.Context, values []Parameter) error
	CreateParts(ctx context.Context, values []Part) error
	CreateLinks(ctx context.Context, values []ControlLink) error

	ListCatalogs(ctx context.Context) ([]CatalogSummary, error)
	GetCatalog(ctx context.Context, catalogID string) (Catalog, error)
	ListGroupRefs(ctx context.Context, catalogID string) ([]GroupRef, error)
	ListGroups(ctx context.Context, catalogID string, offset, limit int) ([]Group, error)
	CountGroups(ctx context.Context, catalogID string) (int64, error)
	// GetGroup looks a group up by its source id, which is only unique
	// within a catalog. An empty catalogID matches any catalog and
	// returns the earliest imported row.
	GetGroup(ctx context.Context, catalogID, groupSourceID string) (Group, error)
	ListControlSummaries(ctx context.Context, groupID uint, offset, limit int) ([]ControlSummary, error)
	CountControls(ctx context.Context, groupID uint) (int64, error)
	GetControl(ctx context.Context, controlID string) (Control, error)
	ListEnhancements(ctx context.Context, baseControlID string) ([]Control, error)
	ListParameters(ctx context.Context, controlID string) ([]Parameter, error)
	ListParts(ctx context.Context, controlID string) ([]Part, error)
	ListLinksTouching(ctx context.Context, controlID string) ([]ControlLink, error)
	ListRelatedControls(ctx context.Context, controlID string) ([]ControlSummary, error)
	GetControlSummaries(ctx context.Context, controlIDs []string) (map[string]ControlSummary, error)
}
