package steps

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/modules/workshop/canvas"
	"github.com/yungbote/workshop-backend/internal/modules/workshop/stages"
	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type AssembleContextDeps struct {
	Log          *logger.Logger
	Registry     *stages.Registry
	Dependencies *stages.DependencyMap

	// Workshops is only consulted when the input carries a UserID.
	Workshops repos.WorkshopRepo
	Summaries repos.StageSummaryRepo
	Canvas    CanvasSnapshotProvider
	Renderer  canvas.Renderer
}

type AssembleContextInput struct {
	WorkshopID uuid.UUID
	// UserID, when set, restricts the read to the workshop's owner.
	UserID  uuid.UUID
	StageID string
}

// AssembleContext builds the generation context for one stage. It is read-only
// and never fails on a missing summary or canvas: the component is left empty
// and named in Degraded.
func AssembleContext(ctx context.Context, deps AssembleContextDeps, in AssembleContextInput) (ContextBundle, error) {
	if deps.Registry == nil || deps.Dependencies == nil || deps.Summaries == nil || deps.Canvas == nil {
		return ContextBundle{}, fmt.Errorf("assemble context: missing deps")
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = canvas.NewTextRenderer()
	}
	if in.WorkshopID == uuid.Nil {
		return ContextBundle{}, fmt.Errorf("%w: missing workshop_id", ErrInvalidInput)
	}
	def, ok := deps.Registry.Get(in.StageID)
	if !ok {
		return ContextBundle{}, fmt.Errorf("%w: %q", ErrStageNotFound, in.StageID)
	}
	depIDs, all, ok := deps.Dependencies.For(def.ID)
	if !ok {
		return ContextBundle{}, fmt.Errorf("%w: no dependency entry for %q", ErrStageNotFound, def.ID)
	}

	ctx, span := observability.StartSpan(ctx, "workshop.assemble_context",
		attribute.String("workshop.id", in.WorkshopID.String()),
		attribute.String("workshop.stage", def.ID),
	)
	var spanErr error
	defer func() { observability.EndSpan(span, spanErr) }()

	if in.UserID != uuid.Nil {
		if _, err := loadOwnedWorkshop(ctx, deps.Workshops, in.WorkshopID, in.UserID); err != nil {
			spanErr = err
			return ContextBundle{}, err
		}
	}

	bundle := ContextBundle{
		WorkshopID:    in.WorkshopID,
		StageID:       def.ID,
		StageName:     def.Name,
		ExistingItems: []string{},
	}
	var mu sync.Mutex
	degrade := func(component string, err error) {
		log.Warn("context component unavailable; using empty value",
			"workshop_id", in.WorkshopID, "stage_id", def.ID, "component", component, "error", err)
		mu.Lock()
		bundle.Degraded = append(bundle.Degraded, component)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	// The first stage has no dependencies and must not touch the summary store.
	if all || len(depIDs) > 0 {
		g.Go(func() error {
			var (
				rows []*types.StageSummary
				err  error
			)
			dbc := dbctx.Context{Ctx: gctx}
			if all {
				rows, err = deps.Summaries.ListForStages(dbc, in.WorkshopID, nil, def.ID)
			} else {
				rows, err = deps.Summaries.ListForStages(dbc, in.WorkshopID, depIDs, "")
			}
			if err != nil {
				degrade("summaries", err)
				return nil
			}
			text := formatSummaries(deps.Registry, rows)
			mu.Lock()
			bundle.Summaries = text
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		items, err := deps.Canvas.LoadSnapshot(gctx, in.WorkshopID, def.ID)
		if err != nil {
			degrade("canvas", err)
			return nil
		}
		rendered := renderer.Render(def.CanvasLayout, items)
		existing := dedupeLabels(items)
		mu.Lock()
		bundle.Canvas = rendered
		bundle.ExistingItems = existing
		mu.Unlock()
		return nil
	})

	if def.RawSource != "" {
		src, _ := deps.Registry.Get(def.RawSource)
		bundle.RawSourceStageID = src.ID
		g.Go(func() error {
			items, err := deps.Canvas.LoadSnapshot(gctx, in.WorkshopID, src.ID)
			if err != nil {
				degrade("raw_source", err)
				return nil
			}
			rendered := renderer.Render(src.CanvasLayout, items)
			mu.Lock()
			bundle.RawSource = rendered
			mu.Unlock()
			return nil
		})
	}

	// every goroutine swallows its error into Degraded
	_ = g.Wait()
	return bundle, nil
}

func formatSummaries(reg *stages.Registry, rows []*types.StageSummary) string {
	blocks := make([]string, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		text := strings.TrimSpace(r.Summary)
		if text == "" {
			continue
		}
		name := r.StageID
		if def, ok := reg.Get(r.StageID); ok {
			name = def.Name
		}
		blocks = append(blocks, fmt.Sprintf("Stage %s (%s): %s", name, r.StageID, text))
	}
	return strings.Join(blocks, "\n\n")
}

func dedupeLabels(items []*types.CanvasItem) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		label := strings.TrimSpace(it.Label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	return out
}
