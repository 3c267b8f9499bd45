package sqlite

import (
	"context"
	"errors"

	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// translate maps gorm's missing-row error onto the domain sentinel so
// callers above the adapter never import gorm.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

type CatalogRepository struct {
	db *gorm.DB
}

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Transaction hands fn a repository bound to one database transaction.
// The importer wraps each group's processing in one of these.
func (r *CatalogRepository) Transaction(ctx context.Context, fn func(tx domain.CatalogRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CatalogRepository{db: tx})
	})
}

func (r *CatalogRepository) CreateCatalog(ctx context.Context, value domain.Catalog) (domain.Catalog, error) {
	m := CatalogModel{ID: value.ID, Title: value.Title, Version: value.Version, LastModified: value.LastModified}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Catalog{}, err
	}
	return domain.Catalog{
		ID:           m.ID,
		Title:        m.Title,
		Version:      m.Version,
		LastModified: m.LastModified,
		CreatedAt:    m.CreatedAt,
	}, nil
}

func (r *CatalogRepository) CreateGroup(ctx context.Context, value domain.Group) (domain.Group, error) {
	m := GroupModel{CatalogID: value.CatalogID, SourceID: value.SourceID, Title: value.Title, Class: value.Class}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Group{}, err
	}
	return domain.Group{
		ID:        m.ID,
		CatalogID: m.CatalogID,
		SourceID:  m.SourceID,
		Title:     m.Title,
		Class:     m.Class,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (r *CatalogRepository) CreateControls(ctx context.Context, values []domain.Control) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]ControlModel, 0, len(values))
	for _, v := range values {
		rows = append(rows, ControlModel{
			ID:            v.ID,
			CatalogID:     v.CatalogID,
			GroupID:       v.GroupID,
			Title:         v.Title,
			Class:         v.Class,
			BaseControlID: v.BaseControlID,
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *CatalogRepository) CreateParameters(ctx context.Context, values []domain.Parameter) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]ParameterModel, 0, len(values))
	for _, v := range values {
		rows = append(rows, ParameterModel{ControlID: v.ControlID, SourceID: v.SourceID, Label: v.Label, Position: v.Position})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *CatalogRepository) CreateParts(ctx context.Context, values []domain.Part) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]PartModel, 0, len(values))
	for _, v := range values {
		rows = append(rows, PartModel{
			ControlID:      v.ControlID,
			SourceID:       v.SourceID,
			ParentSourceID: v.ParentSourceID,
			Name:           v.Name,
			Prose:          v.Prose,
			Position:       v.Position,
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *CatalogRepository) CreateLinks(ctx context.Context, values []domain.ControlLink) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]ControlLinkModel, 0, len(values))
	for _, v := range values {
		rows = append(rows, ControlLinkModel{
			SourceControlID: v.SourceControlID,
			TargetControlID: v.TargetControlID,
			Rel:             v.Rel,
			Href:            v.Href,
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *CatalogRepository) ListCatalogs(ctx context.Context) ([]domain.CatalogSummary, error) {
	rows := make([]CatalogModel, 0)
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.CatalogSummary, 0, len(rows))
	for _, m := range rows {
		refs, err := r.ListGroupRefs(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, domain.CatalogSummary{
			ID:           m.ID,
			Title:        m.Title,
			Version:      m.Version,
			LastModified: m.LastModified,
			Groups:       refs,
		})
	}
	return result, nil
}

func (r *CatalogRepository) GetCatalog(ctx context.Context, catalogID string) (domain.Catalog, error) {
	var m CatalogModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", catalogID).Error; err != nil {
		return domain.Catalog{}, translate(err)
	}
	return domain.Catalog{
		ID:           m.ID,
		Title:        m.Title,
		Version:      m.Version,
		LastModified: m.LastModified,
		CreatedAt:    m.CreatedAt,
	}, nil
}

func (r *CatalogRepository) ListGroupRefs(ctx context.Context, catalogID string) ([]domain.GroupRef, error) {
	rows := make([]GroupModel, 0)
	if err := r.db.WithContext(ctx).Where("catalog_id = ?", catalogID).Order("title ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.GroupRef, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.GroupRef{ID: m.ID, SourceID: m.SourceID, Title: m.Title, Class: m.Class})
	}
	return result, nil
}

func (r *CatalogRepository) ListGroups(ctx context.Context, catalogID string, offset, limit int) ([]domain.Group, error) {
	rows := make([]GroupModel, 0)
	err := r.db.WithContext(ctx).
		Where("catalog_id = ?", catalogID).
		Order("title ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.Group, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.Group{
			ID:        m.ID,
			CatalogID: m.CatalogID,
			SourceID:  m.SourceID,
			Title:     m.Title,
			Class:     m.Class,
			CreatedAt: m.CreatedAt,
		})
	}
	return result, nil
}

func (r *CatalogRepository) CountGroups(ctx context.Context, catalogID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&GroupModel{}).Where("catalog_id = ?", catalogID).Count(&count).Error
	return count, err
}

func (r *CatalogRepository) GetGroup(ctx context.Context, catalogID, groupSourceID string) (domain.Group, error) {
	query := r.db.WithContext(ctx).Where("source_id = ?", groupSourceID)
	if catalogID != "" {
		query = query.Where("catalog_id = ?", catalogID)
	}
	var m GroupModel
	if err := query.Order("id").First(&m).Error; err != nil {
		return domain.Group{}, translate(err)
	}
	return domain.Group{
		ID:        m.ID,
		CatalogID: m.CatalogID,
		SourceID:  m.SourceID,
		Title:     m.Title,
		Class:     m.Class,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (r *CatalogRepository) ListControlSummaries(ctx context.Context, groupID uint, offset, limit int) ([]domain.ControlSummary, error) {
	rows := make([]ControlModel, 0)
	err := r.db.WithContext(ctx).
		Select("id", "title", "class").
		Where("group_id = ? AND base_control_id IS NULL", groupID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.ControlSummary, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ControlSummary{ID: m.ID, Title: m.Title, Class: m.Class})
	}
	return result, nil
}

func (r *CatalogRepository) CountControls(ctx context.Context, groupID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ControlModel{}).
		Where("group_id = ? AND base_control_id IS NULL", groupID).
		Count(&count).Error
	return count, err
}

func (r *CatalogRepository) GetControl(ctx context.Context, controlID string) (domain.Control, error) {
	var m ControlModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", controlID).Error; err != nil {
		return domain.Control{}, translate(err)
	}
	return toDomainControl(m), nil
}

func (r *CatalogRepository) ListEnhancements(ctx context.Context, baseControlID string) ([]domain.Control, error) {
	rows := make([]ControlModel, 0)
	err := r.db.WithContext(ctx).
		Where("base_control_id = ?", baseControlID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.Control, 0, len(rows))
	for _, m := range rows {
		result = append(result, toDomainControl(m))
	}
	return result, nil
}

func (r *CatalogRepository) ListParameters(ctx context.Context, controlID string) ([]domain.Parameter, error) {
	rows := make([]ParameterModel, 0)
	err := r.db.WithContext(ctx).
		Where("control_id = ?", controlID).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.Parameter, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.Parameter{
			ID:        m.ID,
			ControlID: m.ControlID,
			SourceID:  m.SourceID,
			Label:     m.Label,
			Position:  m.Position,
		})
	}
	return result, nil
}

func (r *CatalogRepository) ListParts(ctx context.Context, controlID string) ([]domain.Part, error) {
	rows := make([]PartModel, 0)
	err := r.db.WithContext(ctx).
		Where("control_id = ?", controlID).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.Part, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.Part{
			ID:             m.ID,
			ControlID:      m.ControlID,
			SourceID:       m.SourceID,
			ParentSourceID: m.ParentSourceID,
			Name:           m.Name,
			Prose:          m.Prose,
			Position:       m.Position,
		})
	}
	return result, nil
}

func (r *CatalogRepository) ListLinksTouching(ctx context.Context, controlID string) ([]domain.ControlLink, error) {
	rows := make([]ControlLinkModel, 0)
	err := r.db.WithContext(ctx).
		Where("source_control_id = ? OR target_control_id = ?", controlID, controlID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.ControlLink, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ControlLink{
			ID:              m.ID,
			SourceControlID: m.SourceControlID,
			TargetControlID: m.TargetControlID,
			Rel:             m.Rel,
			Href:            m.Href,
		})
	}
	return result, nil
}

// ListRelatedControls returns the distinct other endpoints of
// rel='related' links touching the given control. Self-loops mark
// external references and are never part of the result.
func (r *CatalogRepository) ListRelatedControls(ctx context.Context, controlID string) ([]domain.ControlSummary, error) {
	type row struct {
		ID    string
		Title string
		Class string
	}
	rows := make([]row, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT DISTINCT c.id, c.title, c.class
FROM control_links l
JOIN controls c
  ON c.id = CASE WHEN l.source_control_id = ? THEN l.target_control_id ELSE l.source_control_id END
WHERE l.rel = 'related'
  AND (l.source_control_id = ? OR l.target_control_id = ?)
  AND l.source_control_id <> l.target_control_id
ORDER BY c.id ASC
`, controlID, controlID, controlID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.ControlSummary, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ControlSummary{ID: m.ID, Title: m.Title, Class: m.Class})
	}
	return result, nil
}

func (r *CatalogRepository) GetControlSummaries(ctx context.Context, controlIDs []string) (map[string]domain.ControlSummary, error) {
	result := make(map[string]domain.ControlSummary, len(controlIDs))
	if len(controlIDs) == 0 {
		return result, nil
	}
	rows := make([]ControlModel, 0, len(controlIDs))
	err := r.db.WithContext(ctx).
		Select("id", "title", "class").
		Where("id IN ?", controlIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, m := range rows {
		result[m.ID] = domain.ControlSummary{ID: m.ID, Title: m.Title, Class: m.Class}
	}
	return result, nil
}

func toDomainControl(m ControlModel) domain.Control {
	return domain.Control{
		ID:            m.ID,
		CatalogID:     m.CatalogID,
		GroupID:       m.GroupID,
		Title:         m.Title,
		Class:         m.Class,
		BaseControlID: m.BaseControlID,
		CreatedAt:     m.CreatedAt,
	}
}
