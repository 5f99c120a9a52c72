package steps

import (
	"context"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/openai"
)

// TranscriptTurn is one (role, text) pair of a stage conversation.
type TranscriptTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type TranscriptProvider interface {
	LoadTranscript(ctx context.Context, workshopID uuid.UUID, stageID string) ([]TranscriptTurn, error)
}

type CanvasSnapshotProvider interface {
	LoadSnapshot(ctx context.Context, workshopID uuid.UUID, stageID string) ([]*types.CanvasItem, error)
}

// TextGenerator is the external generation call. Failures are transient and
// handled at the call site.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, bundle ContextBundle) (string, openai.Usage, error)
}

// ContextBundle is everything handed to the generator for one stage.
type ContextBundle struct {
	WorkshopID uuid.UUID `json:"workshop_id"`
	StageID    string    `json:"stage_id"`
	StageName  string    `json:"stage_name"`

	// Summaries holds "Stage <name> (<id>): <summary>" blocks in workflow order.
	Summaries string `json:"summaries"`
	// Canvas is the rendered snapshot of the current stage's canvas.
	Canvas string `json:"canvas"`
	// RawSource is the rendered canvas of RawSourceStageID when the stage
	// needs an earlier stage's raw breakdown.
	RawSourceStageID string `json:"raw_source_stage_id,omitempty"`
	RawSource        string `json:"raw_source,omitempty"`
	// ExistingItems lists labels already on the canvas so the generator avoids repeats.
	ExistingItems []string `json:"existing_items"`
	// Degraded names the components that could not be read and were left empty.
	Degraded []string `json:"degraded,omitempty"`
}

// Render flattens the bundle into prompt text, skipping empty sections.
func (b ContextBundle) Render() string {
	var sections []string
	if s := strings.TrimSpace(b.Summaries); s != "" {
		sections = append(sections, "Previous stages:\n"+s)
	}
	if s := strings.TrimSpace(b.RawSource); s != "" {
		sections = append(sections, "Raw notes from "+b.RawSourceStageID+":\n"+s)
	}
	if s := strings.TrimSpace(b.Canvas); s != "" {
		sections = append(sections, "Current canvas:\n"+s)
	}
	if len(b.ExistingItems) > 0 {
		sections = append(sections, "Already on the canvas (do not repeat):\n- "+strings.Join(b.ExistingItems, "\n- "))
	}
	return strings.Join(sections, "\n\n")
}
