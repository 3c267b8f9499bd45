package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
)

// fakeRepo is an in-memory CatalogRepository. Transaction snapshots the
// stores and restores them when fn fails, mirroring a rollback.
type fakeRepo struct {
	catalogs []domain.Catalog
	groups   []domain.Group
	controls []domain.Control
	params   []domain.Parameter
	parts    []domain.Part
	links    []domain.ControlLink

	nextGroupID uint

	// failGroupSourceID makes CreateGroup fail for one source id.
	failGroupSourceID string
	// failControlID makes CreateControls fail when the batch holds it.
	failControlID string

	listGroupsCalls   [][2]int
	listControlsCalls [][2]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{}
}

type fakeSnapshot struct {
	catalogs []domain.Catalog
	groups   []domain.Group
	controls []domain.Control
	params   []domain.Parameter
	parts    []domain.Part
	links    []domain.ControlLink
	nextID   uint
}

func (r *fakeRepo) snapshot() fakeSnapshot {
	return fakeSnapshot{
		catalogs: append([]domain.Catalog(nil), r.catalogs...),
		groups:   append([]domain.Group(nil), r.groups...),
		controls: append([]domain.Control(nil), r.controls...),
		params:   append([]domain.Parameter(nil), r.params...),
		parts:    append([]domain.Part(nil), r.parts...),
		links:    append([]domain.ControlLink(nil), r.links...),
		nextID:   r.nextGroupID,
	}
}

func (r *fakeRepo) restore(s fakeSnapshot) {
	r.catalogs = s.catalogs
	r.groups = s.groups
	r.controls = s.controls
	r.params = s.params
	r.parts = s.parts
	r.links = s.links
	r.nextGroupID = s.nextID
}

func (r *fakeRepo) Transaction(ctx context.Context, fn func(tx domain.CatalogRepository) error) error {
	snap := r.snapshot()
	if err := fn(r); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *fakeRepo) CreateCatalog(ctx context.Context, value domain.Catalog) (domain.Catalog, error) {
	r.catalogs = append(r.catalogs, value)
	return value, nil
}

func (r *fakeRepo) CreateGroup(ctx context.Context, value domain.Group) (domain.Group, error) {
	if r.failGroupSourceID != "" && value.SourceID == r.failGroupSourceID {
		return domain.Group{}, fmt.Errorf("constraint violation on group %s", value.SourceID)
	}
	r.nextGroupID++
	value.ID = r.nextGroupID
	r.groups = append(r.groups, value)
	return value, nil
}

func (r *fakeRepo) CreateControls(ctx context.Context, values []domain.Control) error {
	for _, v := range values {
		if r.failControlID != "" && v.ID == r.failControlID {
			return fmt.Errorf("constraint violation on control %s", v.ID)
		}
	}
	r.controls = append(r.controls, values...)
	return nil
}

func (r *fakeRepo) CreateParameters(ctx context.Context, values []domain.Parameter) error {
	r.params = append(r.params, values...)
	return nil
}

func (r *fakeRepo) CreateParts(ctx context.Context, values []domain.Part) error {
	r.parts = append(r.parts, values...)
	return nil
}

func (r *fakeRepo) CreateLinks(ctx context.Context, values []domain.ControlLink) error {
	r.links = append(r.links, values...)
	return nil
}

func (r *fakeRepo) ListCatalogs(ctx context.Context) ([]domain.CatalogSummary, error) {
	result := make([]domain.CatalogSummary, 0, len(r.catalogs))
	for _, c := range r.catalogs {
		refs, _ := r.ListGroupRefs(ctx, c.ID)
		result = append(result, domain.CatalogSummary{
			ID: c.ID, Title: c.Title, Version: c.Version, LastModified: c.LastModified, Groups: refs,
		})
	}
	return result, nil
}

func (r *fakeRepo) GetCatalog(ctx context.Context, catalogID string) (domain.Catalog, error) {
	for _, c := range r.catalogs {
		if c.ID == catalogID {
			return c, nil
		}
	}
	return domain.Catalog{}, domain.ErrNotFound
}

func (r *fakeRepo) ListGroupRefs(ctx context.Context, catalogID string) ([]domain.GroupRef, error) {
	result := make([]domain.GroupRef, 0)
	for _, g := range r.sortedGroups(catalogID) {
		result = append(result, domain.GroupRef{ID: g.ID, SourceID: g.SourceID, Title: g.Title, Class: g.Class})
	}
	return result, nil
}

func (r *fakeRepo) sortedGroups(catalogID string) []domain.Group {
	groups := make([]domain.Group, 0)
	for _, g := range r.groups {
		if g.CatalogID == catalogID {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups
}

func (r *fakeRepo) ListGroups(ctx context.Context, catalogID string, offset, limit int) ([]domain.Group, error) {
	r.listGroupsCalls = append(r.listGroupsCalls, [2]int{offset, limit})
	return window(r.sortedGroups(catalogID), offset, limit), nil
}

func (r *fakeRepo) CountGroups(ctx context.Context, catalogID string) (int64, error) {
	return int64(len(r.sortedGroups(catalogID))), nil
}

func (r *fakeRepo) GetGroup(ctx context.Context, catalogID, groupSourceID string) (domain.Group, error) {
	for _, g := range r.groups {
		if g.SourceID == groupSourceID && (catalogID == "" || g.CatalogID == catalogID) {
			return g, nil
		}
	}
	return domain.Group{}, domain.ErrNotFound
}

func (r *fakeRepo) baseControls(groupID uint) []domain.Control {
	result := make([]domain.Control, 0)
	for _, c := range r.controls {
		if c.GroupID == groupID && c.BaseControlID == nil {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (r *fakeRepo) ListControlSummaries(ctx context.Context, groupID uint, offset, limit int) ([]domain.ControlSummary, error) {
	r.listControlsCalls = append(r.listControlsCalls, [2]int{offset, limit})
	controls := window(r.baseControls(groupID), offset, limit)
	result := make([]domain.ControlSummary, 0, len(controls))
	for _, c := range controls {
		result = append(result, domain.ControlSummary{ID: c.ID, Title: c.Title, Class: c.Class})
	}
	return result, nil
}

func (r *fakeRepo) CountControls(ctx context.Context, groupID uint) (int64, error) {
	return int64(len(r.baseControls(groupID))), nil
}

func (r *fakeRepo) GetControl(ctx context.Context, controlID string) (domain.Control, error) {
	for _, c := range r.controls {
		if c.ID == controlID {
			return c, nil
		}
	}
	return domain.Control{}, domain.ErrNotFound
}

func (r *fakeRepo) ListEnhancements(ctx context.Context, baseControlID string) ([]domain.Control, error) {
	result := make([]domain.Control, 0)
	for _, c := range r.controls {
		if c.BaseControlID != nil && *c.BaseControlID == baseControlID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeRepo) ListParameters(ctx context.Context, controlID string) ([]domain.Parameter, error) {
	result := make([]domain.Parameter, 0)
	for _, p := range r.params {
		if p.ControlID == controlID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (r *fakeRepo) ListParts(ctx context.Context, controlID string) ([]domain.Part, error) {
	result := make([]domain.Part, 0)
	for _, p := range r.parts {
		if p.ControlID == controlID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (r *fakeRepo) ListLinksTouching(ctx context.Context, controlID string) ([]domain.ControlLink, error) {
	result := make([]domain.ControlLink, 0)
	for _, l := range r.links {
		if l.SourceControlID == controlID || l.TargetControlID == controlID {
			result = append(result, l)
		}
	}
	return result, nil
}

func (r *fakeRepo) ListRelatedControls(ctx context.Context, controlID string) ([]domain.ControlSummary, error) {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, l := range r.links {
		if l.Rel != "related" || l.SourceControlID == l.TargetControlID {
			continue
		}
		var other string
		switch controlID {
		case l.SourceControlID:
			other = l.TargetControlID
		case l.TargetControlID:
			other = l.SourceControlID
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			ids = append(ids, other)
		}
	}
	sort.Strings(ids)
	result := make([]domain.ControlSummary, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetControl(ctx, id)
		if err != nil {
			continue
		}
		result = append(result, domain.ControlSummary{ID: c.ID, Title: c.Title, Class: c.Class})
	}
	return result, nil
}

func (r *fakeRepo) GetControlSummaries(ctx context.Context, controlIDs []string) (map[string]domain.ControlSummary, error) {
	result := make(map[string]domain.ControlSummary, len(controlIDs))
	for _, id := range controlIDs {
		if c, err := r.GetControl(ctx, id); err == nil {
			result[c.ID] = domain.ControlSummary{ID: c.ID, Title: c.Title, Class: c.Class}
		}
	}
	return result, nil
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (r *fakeRepo) linkStrings() []string {
	result := make([]string, 0, len(r.links))
	for _, l := range r.links {
		result = append(result, strings.Join([]string{l.SourceControlID, l.Rel, l.TargetControlID}, " "))
	}
	sort.Strings(result)
	return result
}
