package canvas

import (
	"testing"

	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/modules/workshop/stages"
)

func intp(v int) *int { return &v }

func TestTextRendererLayouts(t *testing.T) {
	r := NewTextRenderer()
	cases := []struct {
		name   string
		layout string
		items  []*types.CanvasItem
		want   string
	}{
		{
			name:   "list skips blank labels",
			layout: stages.LayoutList,
			items:  []*types.CanvasItem{{Label: " Long waits "}, {Label: "  "}, nil, {Label: "Paper forms"}},
			want:   "- Long waits\n- Paper forms",
		},
		{
			name:   "grouped in first-seen category order",
			layout: stages.LayoutGrouped,
			items: []*types.CanvasItem{
				{Label: "Nurse", Category: "Staff"},
				{Label: "Patient", Category: "Users"},
				{Label: "Receptionist", Category: "Staff"},
				{Label: "Insurer"},
			},
			want: "Staff:\n- Nurse\n- Receptionist\n\nUsers:\n- Patient\n\nOther:\n- Insurer",
		},
		{
			name:   "grid sorted by cell with unplaced tail",
			layout: stages.LayoutGrid,
			items: []*types.CanvasItem{
				{Label: "Frustrated", Category: "Emotions", Row: intp(2), Col: intp(1)},
				{Label: "Arrive", Category: "Actions", Row: intp(1), Col: intp(1)},
				{Label: "Wait", Row: intp(1), Col: intp(2)},
				{Label: "Loose note"},
			},
			want: "[row 1, col 1] Actions: Arrive\n[row 1, col 2] Wait\n[row 2, col 1] Emotions: Frustrated\n\nUnplaced:\n- Loose note",
		},
		{
			name:   "empty",
			layout: stages.LayoutGrid,
			items:  nil,
			want:   "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Render(tc.layout, tc.items); got != tc.want {
				t.Fatalf("Render: want=%q got=%q", tc.want, got)
			}
		})
	}
}
