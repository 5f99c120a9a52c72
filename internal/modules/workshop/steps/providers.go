package steps

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/openai"
)

type repoTranscriptProvider struct {
	stages   repos.StageInstanceRepo
	messages repos.ConversationMessageRepo
}

// NewRepoTranscriptProvider reads transcripts from the conversation_message table.
func NewRepoTranscriptProvider(stages repos.StageInstanceRepo, messages repos.ConversationMessageRepo) TranscriptProvider {
	return &repoTranscriptProvider{stages: stages, messages: messages}
}

func (p *repoTranscriptProvider) LoadTranscript(ctx context.Context, workshopID uuid.UUID, stageID string) ([]TranscriptTurn, error) {
	dbc := dbctx.Context{Ctx: ctx}
	si, err := p.stages.GetByWorkshopAndStage(dbc, workshopID, stageID)
	if err != nil {
		return nil, err
	}
	if si == nil {
		return nil, nil
	}
	rows, err := p.messages.ListByStageInstance(dbc, si.ID)
	if err != nil {
		return nil, err
	}
	out := make([]TranscriptTurn, 0, len(rows))
	for _, m := range rows {
		out = append(out, TranscriptTurn{Role: m.Role, Text: m.Content})
	}
	return out, nil
}

type repoCanvasProvider struct {
	canvas repos.CanvasItemRepo
}

// NewRepoCanvasProvider reads canvas snapshots from the canvas_item table.
func NewRepoCanvasProvider(canvas repos.CanvasItemRepo) CanvasSnapshotProvider {
	return &repoCanvasProvider{canvas: canvas}
}

func (p *repoCanvasProvider) LoadSnapshot(ctx context.Context, workshopID uuid.UUID, stageID string) ([]*types.CanvasItem, error) {
	return p.canvas.ListByStage(dbctx.Context{Ctx: ctx}, workshopID, stageID)
}

const defaultFacilitatorPrompt = "You are a design-thinking facilitator. Stay factual and build on the context provided."

type openAIGenerator struct {
	client openai.Client
}

// NewOpenAIGenerator adapts the Responses API client: the rendered bundle is
// the system context and prompt is the user turn.
func NewOpenAIGenerator(client openai.Client) TextGenerator {
	if client == nil {
		return nil
	}
	return &openAIGenerator{client: client}
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt string, bundle ContextBundle) (string, openai.Usage, error) {
	system := defaultFacilitatorPrompt
	if rendered := bundle.Render(); rendered != "" {
		system += "\n\n" + rendered
	}
	text, usage, err := g.client.GenerateText(ctx, system, prompt)
	if err != nil {
		return "", usage, err
	}
	return strings.TrimSpace(text), usage, nil
}
