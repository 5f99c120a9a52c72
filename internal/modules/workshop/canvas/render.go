package canvas

import (
	"fmt"
	"sort"
	"strings"

	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/modules/workshop/stages"
)

const uncategorized = "Other"

// Renderer turns a stage's canvas items into compact prompt text.
type Renderer interface {
	Render(layout string, items []*types.CanvasItem) string
}

type TextRenderer struct{}

func NewTextRenderer() TextRenderer { return TextRenderer{} }

func (TextRenderer) Render(layout string, items []*types.CanvasItem) string {
	items = nonEmpty(items)
	if len(items) == 0 {
		return ""
	}
	switch layout {
	case stages.LayoutGrouped:
		return renderGrouped(items)
	case stages.LayoutGrid:
		return renderGrid(items)
	default:
		return renderList(items)
	}
}

func nonEmpty(items []*types.CanvasItem) []*types.CanvasItem {
	out := make([]*types.CanvasItem, 0, len(items))
	for _, it := range items {
		if it != nil && strings.TrimSpace(it.Label) != "" {
			out = append(out, it)
		}
	}
	return out
}

func renderList(items []*types.CanvasItem) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(it.Label))
	}
	return b.String()
}

// renderGrouped keeps categories in first-seen order.
func renderGrouped(items []*types.CanvasItem) string {
	order := []string{}
	groups := map[string][]*types.CanvasItem{}
	for _, it := range items {
		cat := strings.TrimSpace(it.Category)
		if cat == "" {
			cat = uncategorized
		}
		if _, ok := groups[cat]; !ok {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], it)
	}
	blocks := make([]string, 0, len(order))
	for _, cat := range order {
		blocks = append(blocks, cat+":\n"+renderList(groups[cat]))
	}
	return strings.Join(blocks, "\n\n")
}

func renderGrid(items []*types.CanvasItem) string {
	placed := make([]*types.CanvasItem, 0, len(items))
	var unplaced []*types.CanvasItem
	for _, it := range items {
		if it.Row == nil || it.Col == nil {
			unplaced = append(unplaced, it)
			continue
		}
		placed = append(placed, it)
	}
	sort.SliceStable(placed, func(i, j int) bool {
		if *placed[i].Row != *placed[j].Row {
			return *placed[i].Row < *placed[j].Row
		}
		return *placed[i].Col < *placed[j].Col
	})
	lines := make([]string, 0, len(items)+1)
	for _, it := range placed {
		label := strings.TrimSpace(it.Label)
		if cat := strings.TrimSpace(it.Category); cat != "" {
			label = cat + ": " + label
		}
		lines = append(lines, fmt.Sprintf("[row %d, col %d] %s", *it.Row, *it.Col, label))
	}
	if len(unplaced) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "Unplaced:", renderList(unplaced))
	}
	return strings.Join(lines, "\n")
}
