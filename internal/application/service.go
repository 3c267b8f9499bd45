package application

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
	"github.com/FoxxDev-Collab/controlgraph/internal/oscal"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// PageParams are pagination inputs after clamping. Zero values from
// callers fall back to the defaults.
type PageParams struct {
	Page  int
	Limit int
}

func (p PageParams) clamped() PageParams {
	if p.Page < 1 {
		p.Page = defaultPage
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

func (p PageParams) offset() int { return (p.Page - 1) * p.Limit }

// CatalogService is the application facade: ingestion on one side,
// partial reads against the persisted graph on the other.
type CatalogService struct {
	repo     domain.CatalogRepository
	importer *Importer
	log      *slog.Logger
}

func NewCatalogService(repo domain.CatalogRepository, log *slog.Logger) *CatalogService {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogService{
		repo:     repo,
		importer: NewImporter(repo, log),
		log:      log,
	}
}

// Ingest validates raw document bytes and runs the import. A
// *oscal.SchemaError return means nothing was persisted.
func (s *CatalogService) Ingest(ctx context.Context, data []byte, typeTag string) (domain.ImportResult, error) {
	doc, err := oscal.Parse(data)
	if err != nil {
		return domain.ImportResult{}, err
	}
	return s.importer.Run(ctx, doc, typeTag)
}

func (s *CatalogService) ListCatalogs(ctx context.Context) ([]domain.CatalogSummary, error) {
	return s.repo.ListCatalogs(ctx)
}

// GetCatalog returns the catalog with its groups populated shallowly
// (no controls).
func (s *CatalogService) GetCatalog(ctx context.Context, catalogID string) (domain.CatalogSummary, error) {
	catalog, err := s.repo.GetCatalog(ctx, catalogID)
	if err != nil {
		return domain.CatalogSummary{}, err
	}
	refs, err := s.repo.ListGroupRefs(ctx, catalogID)
	if err != nil {
		return domain.CatalogSummary{}, err
	}
	return domain.CatalogSummary{
		ID:           catalog.ID,
		Title:        catalog.Title,
		Version:      catalog.Version,
		LastModified: catalog.LastModified,
		Groups:       refs,
	}, nil
}

// GetCatalogPage loads one page of groups ordered by title, each group
// carrying only its controls' basic fields.
func (s *CatalogService) GetCatalogPage(ctx context.Context, catalogID string, params PageParams) (domain.CatalogPage, error) {
	params = params.clamped()

	catalog, err := s.repo.GetCatalog(ctx, catalogID)
	if err != nil {
		return domain.CatalogPage{}, err
	}
	groups, err := s.repo.ListGroups(ctx, catalogID, params.offset(), params.Limit)
	if err != nil {
		return domain.CatalogPage{}, err
	}
	for i := range groups {
		controls, err := s.repo.ListControlSummaries(ctx, groups[i].ID, 0, -1)
		if err != nil {
			return domain.CatalogPage{}, err
		}
		groups[i].Controls = controls
	}
	total, err := s.repo.CountGroups(ctx, catalogID)
	if err != nil {
		return domain.CatalogPage{}, err
	}
	catalog.Groups = groups
	return domain.CatalogPage{
		Catalog:     catalog,
		TotalGroups: total,
		HasMore:     int64(params.offset()+params.Limit) < total,
	}, nil
}

// GetGroupPage paginates controls within one group, ordered by id.
// Group source ids repeat across catalogs, so callers may scope the
// lookup with a catalog id; an empty catalogID matches any catalog.
func (s *CatalogService) GetGroupPage(ctx context.Context, catalogID, groupSourceID string, params PageParams) (domain.GroupPage, error) {
	params = params.clamped()

	group, err := s.repo.GetGroup(ctx, catalogID, groupSourceID)
	if err != nil {
		return domain.GroupPage{}, err
	}
	controls, err := s.repo.ListControlSummaries(ctx, group.ID, params.offset(), params.Limit)
	if err != nil {
		return domain.GroupPage{}, err
	}
	total, err := s.repo.CountControls(ctx, group.ID)
	if err != nil {
		return domain.GroupPage{}, err
	}
	group.Controls = controls
	return domain.GroupPage{
		Group:         group,
		TotalControls: total,
		HasMore:       int64(params.offset()+params.Limit) < total,
	}, nil
}

// GetControlDetail returns one control fully populated: parameters,
// part tree, enhancements with their own parameters and parts, and
// every link touching the control with the other endpoint resolved.
func (s *CatalogService) GetControlDetail(ctx context.Context, controlID string) (domain.ControlDetail, error) {
	control, err := s.repo.GetControl(ctx, controlID)
	if err != nil {
		return domain.ControlDetail{}, err
	}

	params, err := s.repo.ListParameters(ctx, controlID)
	if err != nil {
		return domain.ControlDetail{}, err
	}
	parts, err := s.repo.ListParts(ctx, controlID)
	if err != nil {
		return domain.ControlDetail{}, err
	}

	enhancements, err := s.repo.ListEnhancements(ctx, controlID)
	if err != nil {
		return domain.ControlDetail{}, err
	}
	enhDetails := make([]domain.EnhancementDetail, 0, len(enhancements))
	for _, enh := range enhancements {
		enhParams, err := s.repo.ListParameters(ctx, enh.ID)
		if err != nil {
			return domain.ControlDetail{}, err
		}
		enhParts, err := s.repo.ListParts(ctx, enh.ID)
		if err != nil {
			return domain.ControlDetail{}, err
		}
		enhDetails = append(enhDetails, domain.EnhancementDetail{
			Control:    enh,
			Parameters: enhParams,
			Parts:      buildPartTree(enhParts),
		})
	}

	links, err := s.linkViews(ctx, controlID)
	if err != nil {
		return domain.ControlDetail{}, err
	}

	return domain.ControlDetail{
		Control:      control,
		Parameters:   params,
		Parts:        buildPartTree(parts),
		Enhancements: enhDetails,
		Links:        links,
	}, nil
}

// RelatedControls returns the de-duplicated other endpoints of
// rel='related' links in either direction.
func (s *CatalogService) RelatedControls(ctx context.Context, controlID string) ([]domain.ControlSummary, error) {
	if _, err := s.repo.GetControl(ctx, controlID); err != nil {
		return nil, err
	}
	return s.repo.ListRelatedControls(ctx, controlID)
}

func (s *CatalogService) linkViews(ctx context.Context, controlID string) ([]domain.LinkView, error) {
	links, err := s.repo.ListLinksTouching(ctx, controlID)
	if err != nil {
		return nil, err
	}

	otherIDs := make([]string, 0, len(links))
	for _, l := range links {
		if l.SourceControlID == l.TargetControlID {
			continue
		}
		if l.SourceControlID == controlID {
			otherIDs = append(otherIDs, l.TargetControlID)
		} else {
			otherIDs = append(otherIDs, l.SourceControlID)
		}
	}
	summaries, err := s.repo.GetControlSummaries(ctx, otherIDs)
	if err != nil {
		return nil, err
	}

	views := make([]domain.LinkView, 0, len(links))
	for _, l := range links {
		view := domain.LinkView{
			Rel:      l.Rel,
			Href:     l.Href,
			Outgoing: l.SourceControlID == controlID,
		}
		if l.SourceControlID == l.TargetControlID {
			view.External = true
			views = append(views, view)
			continue
		}
		otherID := l.TargetControlID
		if !view.Outgoing {
			otherID = l.SourceControlID
		}
		if summary, ok := summaries[otherID]; ok {
			view.Other = summary
		} else {
			view.Other = domain.ControlSummary{ID: otherID}
		}
		views = append(views, view)
	}
	return views, nil
}

// buildPartTree reconstructs a control's part forest from flat rows.
// Parent pointers are source-id references; roots have none. Sibling
// order follows stored position.
func buildPartTree(parts []domain.Part) []domain.PartNode {
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Position < parts[j].Position })

	children := make(map[string][]domain.Part)
	roots := make([]domain.Part, 0)
	for _, p := range parts {
		if p.ParentSourceID == nil {
			roots = append(roots, p)
			continue
		}
		children[*p.ParentSourceID] = append(children[*p.ParentSourceID], p)
	}

	var build func(list []domain.Part) []domain.PartNode
	build = func(list []domain.Part) []domain.PartNode {
		nodes := make([]domain.PartNode, 0, len(list))
		for _, p := range list {
			nodes = append(nodes, domain.PartNode{
				SourceID: p.SourceID,
				Name:     p.Name,
				Prose:    p.Prose,
				Parts:    build(children[p.SourceID]),
			})
		}
		return nodes
	}
	return build(roots)
}

// IsNotFound reports whether err is the repository's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
