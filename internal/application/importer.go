package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
	"github.com/FoxxDev-Collab/controlgraph/internal/oscal"
	"github.com/google/uuid"
)

// controlIDPattern matches internal control anchors: two letters, a
// dash, digits, optional dotted sub-number (ac-1, AC-1.2).
var controlIDPattern = regexp.MustCompile(`^(?i)[a-z]{2}-[0-9]+(\.[0-9]+)?$`)

const defaultChunkSize = 50

// Importer turns a validated catalog document into persisted graph
// rows. Construction is two-pass: pass 1 indexes every control and
// enhancement id so pass 2 can resolve links that point forward in the
// document or into another group's subtree.
type Importer struct {
	repo      domain.CatalogRepository
	log       *slog.Logger
	chunkSize int
}

func NewImporter(repo domain.CatalogRepository, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{repo: repo, log: log, chunkSize: defaultChunkSize}
}

// idIndex is the identifier map built in pass 1. It lives for one
// import run only.
type idIndex struct {
	nodes map[string]*controlNode
}

type controlNode struct {
	src    *oscal.Control
	baseID string // empty for a top-level control
}

func (ix *idIndex) register(id string, node *controlNode) bool {
	if _, exists := ix.nodes[id]; exists {
		return false
	}
	ix.nodes[id] = node
	return true
}

func (ix *idIndex) lookup(id string) (*controlNode, bool) {
	node, ok := ix.nodes[id]
	return node, ok
}

// chunkRows is the unit of a batched flush: everything produced by one
// chunk of controls, written together.
type chunkRows struct {
	controls   []domain.Control
	parameters []domain.Parameter
	parts      []domain.Part
	links      []domain.ControlLink
	done       int // controls plus enhancements materialized
}

// Run imports one validated document. The catalog row is committed
// before any group work begins; each group then runs in its own
// transaction. Recoverable per-item failures are collected on the
// tracker and never abort the run.
func (im *Importer) Run(ctx context.Context, doc *oscal.Document, typeTag string) (domain.ImportResult, error) {
	started := time.Now()
	expected := doc.Stats()

	tracker := NewTracker(im.log)
	tracker.Start(expected.Groups, expected.Controls+expected.Enhancements)

	lastModified, _ := oscal.ParseLastModified(doc.Catalog.Metadata.LastModified)
	catalog, err := im.repo.CreateCatalog(ctx, domain.Catalog{
		ID:           doc.Catalog.UUID,
		Title:        doc.Catalog.Metadata.Title,
		Version:      doc.Catalog.Metadata.Version,
		LastModified: lastModified,
	})
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("create catalog %s: %w", doc.Catalog.UUID, err)
	}

	index := im.buildIndex(doc, tracker)

	var stats domain.ImportStats
	for gi := range doc.Catalog.Groups {
		group := &doc.Catalog.Groups[gi]
		// Group counts stay local until the transaction commits, so a
		// rollback never leaks rolled-back rows into the report.
		var groupStats domain.ImportStats
		var done int
		err := im.repo.Transaction(ctx, func(tx domain.CatalogRepository) error {
			return im.importGroup(ctx, tx, catalog.ID, group, index, tracker, &groupStats, &done)
		})
		if err != nil {
			tracker.Error(domain.ImportErrorGroup, fmt.Sprintf("group %s failed", group.ID), err.Error())
			im.log.Warn("group rolled back", "group", group.ID, "error", err)
			continue
		}
		stats.Groups++
		stats.Controls += groupStats.Controls
		stats.Enhancements += groupStats.Enhancements
		stats.Parameters += groupStats.Parameters
		stats.Parts += groupStats.Parts
		stats.Links += groupStats.Links
		for i := 0; i < done; i++ {
			tracker.ControlDone()
		}
		tracker.GroupDone()
	}

	report := tracker.Finish(stats)
	duration := time.Since(started)
	im.log.Info("import finished",
		"catalog", catalog.ID,
		"type", typeTag,
		"groups", report.GroupsDone,
		"controls", report.ControlsDone,
		"errors", len(report.Errors),
		"duration", duration,
	)

	message := fmt.Sprintf("imported catalog %q", catalog.Title)
	if !report.Success {
		message = fmt.Sprintf("imported catalog %q with %d errors", catalog.Title, len(report.Errors))
	}
	return domain.ImportResult{
		Success: report.Success,
		Message: message,
		Details: domain.ImportDetails{
			Duration: duration.Round(time.Millisecond).String(),
			Stats:    report.Stats,
			Catalog:  domain.CatalogHeader{ID: catalog.ID, Title: catalog.Title, Version: catalog.Version},
			Errors:   report.Errors,
		},
	}, nil
}

// buildIndex is pass 1: register every control and enhancement id
// before any attachment work, so forward references resolve. Duplicate
// ids keep the first occurrence and record a recoverable error.
func (im *Importer) buildIndex(doc *oscal.Document, tracker *Tracker) *idIndex {
	index := &idIndex{nodes: make(map[string]*controlNode)}
	for gi := range doc.Catalog.Groups {
		group := &doc.Catalog.Groups[gi]
		for ci := range group.Controls {
			control := &group.Controls[ci]
			if !index.register(control.ID, &controlNode{src: control}) {
				tracker.Error(domain.ImportErrorControl,
					fmt.Sprintf("duplicate control id %s", control.ID),
					fmt.Sprintf("group %s", group.ID))
				continue
			}
			for ei := range control.Controls {
				enh := &control.Controls[ei]
				if !index.register(enh.ID, &controlNode{src: enh, baseID: control.ID}) {
					tracker.Error(domain.ImportErrorEnhancement,
						fmt.Sprintf("duplicate enhancement id %s", enh.ID),
						fmt.Sprintf("control %s", control.ID))
				}
			}
		}
	}
	return index
}

// importGroup is pass 2 for one group: create the group row, then
// process its controls in fixed-size chunks, flushing each chunk
// before starting the next.
func (im *Importer) importGroup(ctx context.Context, tx domain.CatalogRepository, catalogID string, src *oscal.Group, index *idIndex, tracker *Tracker, stats *domain.ImportStats, done *int) error {
	group, err := tx.CreateGroup(ctx, domain.Group{
		CatalogID: catalogID,
		SourceID:  src.ID,
		Title:     src.Title,
		Class:     src.Class,
	})
	if err != nil {
		return err
	}

	for start := 0; start < len(src.Controls); start += im.chunkSize {
		end := start + im.chunkSize
		if end > len(src.Controls) {
			end = len(src.Controls)
		}

		rows := &chunkRows{}
		for ci := start; ci < end; ci++ {
			control := &src.Controls[ci]
			node, ok := index.lookup(control.ID)
			if !ok || node.src != control {
				// Duplicate id; the first occurrence owns the row.
				continue
			}
			im.materializeControl(control, catalogID, group.ID, nil, index, tracker, rows)
		}

		if err := flushChunk(ctx, tx, rows); err != nil {
			return err
		}
		stats.Controls += countBaseControls(rows.controls)
		stats.Enhancements += len(rows.controls) - countBaseControls(rows.controls)
		stats.Parameters += len(rows.parameters)
		stats.Parts += len(rows.parts)
		stats.Links += len(rows.links)
		*done += rows.done
	}
	return nil
}

// materializeControl builds the rows for one control: the control
// itself, its parameters, its part forest, its links, and recursively
// its enhancements. baseID is non-nil for an enhancement.
func (im *Importer) materializeControl(src *oscal.Control, catalogID string, groupID uint, baseID *string, index *idIndex, tracker *Tracker, rows *chunkRows) {
	rows.controls = append(rows.controls, domain.Control{
		ID:            src.ID,
		CatalogID:     catalogID,
		GroupID:       groupID,
		Title:         src.Title,
		Class:         src.Class,
		BaseControlID: baseID,
	})
	rows.done++

	for i, p := range src.Params {
		rows.parameters = append(rows.parameters, domain.Parameter{
			ControlID: src.ID,
			SourceID:  p.ID,
			Label:     p.Label,
			Position:  i,
		})
	}

	pos := 0
	im.materializeParts(src.ID, src.Parts, nil, &pos, rows)

	for _, link := range src.Links {
		im.resolveLink(src.ID, link, index, tracker, rows)
	}

	if baseID != nil {
		// An enhancement of an enhancement has no representation in the
		// graph; record it and move on.
		for _, deep := range src.Controls {
			tracker.Error(domain.ImportErrorEnhancement,
				fmt.Sprintf("enhancement %s nested under enhancement %s", deep.ID, src.ID),
				"enhancements may only attach to base controls")
		}
		return
	}
	for ei := range src.Controls {
		enh := &src.Controls[ei]
		node, ok := index.lookup(enh.ID)
		if !ok || node.src != enh {
			continue
		}
		base := src.ID
		im.materializeControl(enh, catalogID, groupID, &base, index, tracker, rows)
	}
}

// materializeParts walks a part list depth-first in document order.
// Parent linkage uses source ids so an entire forest flushes in one
// batch; absent ids are synthesized.
func (im *Importer) materializeParts(controlID string, parts []oscal.Part, parentSourceID *string, pos *int, rows *chunkRows) {
	for i := range parts {
		part := &parts[i]
		sourceID := part.ID
		if strings.TrimSpace(sourceID) == "" {
			sourceID = uuid.NewString()
		}
		rows.parts = append(rows.parts, domain.Part{
			ControlID:      controlID,
			SourceID:       sourceID,
			ParentSourceID: parentSourceID,
			Name:           part.Name,
			Prose:          part.Prose,
			Position:       *pos,
		})
		*pos++
		im.materializeParts(controlID, part.Parts, &sourceID, pos, rows)
	}
}

// resolveLink applies the anchor rule: a stripped href matching the
// control-id pattern must resolve through the identifier map; anything
// else is an external reference stored as a self-loop.
func (im *Importer) resolveLink(sourceID string, link oscal.Link, index *idIndex, tracker *Tracker, rows *chunkRows) {
	targetID := strings.TrimPrefix(link.Href, "#")
	if controlIDPattern.MatchString(targetID) {
		if _, ok := index.lookup(targetID); !ok {
			tracker.Error(domain.ImportErrorLink,
				fmt.Sprintf("link target %s not declared in document", targetID),
				fmt.Sprintf("control %s href %s", sourceID, link.Href))
			return
		}
		rows.links = append(rows.links, domain.ControlLink{
			SourceControlID: sourceID,
			TargetControlID: targetID,
			Rel:             link.Rel,
			Href:            link.Href,
		})
		return
	}
	rows.links = append(rows.links, domain.ControlLink{
		SourceControlID: sourceID,
		TargetControlID: sourceID,
		Rel:             link.Rel,
		Href:            link.Href,
	})
}

func flushChunk(ctx context.Context, tx domain.CatalogRepository, rows *chunkRows) error {
	if err := tx.CreateControls(ctx, rows.controls); err != nil {
		return err
	}
	if err := tx.CreateParameters(ctx, rows.parameters); err != nil {
		return err
	}
	if err := tx.CreateParts(ctx, rows.parts); err != nil {
		return err
	}
	return tx.CreateLinks(ctx, rows.links)
}

func countBaseControls(controls []domain.Control) int {
	n := 0
	for _, c := range controls {
		if c.BaseControlID == nil {
			n++
		}
	}
	return n
}
