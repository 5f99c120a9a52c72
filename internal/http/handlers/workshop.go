package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/http/response"
	workshopmod "github.com/yungbote/workshop-backend/internal/modules/workshop"
	"github.com/yungbote/workshop-backend/internal/platform/apierr"
	"github.com/yungbote/workshop-backend/internal/platform/ctxutil"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type WorkshopHandler struct {
	log      *logger.Logger
	workshop workshopmod.Usecases
}

func NewWorkshopHandler(log *logger.Logger, workshop workshopmod.Usecases) *WorkshopHandler {
	return &WorkshopHandler{
		log:      log.With("handler", "WorkshopHandler"),
		workshop: workshop,
	}
}

type createWorkshopRequest struct {
	Title string `json:"title"`
}

type advanceRequest struct {
	FromStageID string `json:"from_stage_id"`
	ToStageID   string `json:"to_stage_id"`
}

type saveArtifactRequest struct {
	Payload       json.RawMessage `json:"payload"`
	SchemaVersion int             `json:"schema_version"`
	// ExpectedVersion nil means last-writer-wins against the current version.
	ExpectedVersion *int `json:"expected_version"`
}

type appendMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type replaceCanvasRequest struct {
	Items []workshopmod.CanvasItemInput `json:"items"`
}

// POST /api/workshops
func (h *WorkshopHandler) CreateWorkshop(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req createWorkshopRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	out, err := h.workshop.CreateWorkshop(c.Request.Context(), workshopmod.CreateWorkshopInput{
		UserID: userID,
		Title:  req.Title,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, out)
}

// GET /api/workshops
func (h *WorkshopHandler) ListWorkshops(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	rows, err := h.workshop.ListWorkshops(c.Request.Context(), userID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"workshops": rows})
}

// GET /api/workshops/:id
func (h *WorkshopHandler) GetWorkshop(c *gin.Context) {
	userID, workshopID, ok := requireWorkshop(c)
	if !ok {
		return
	}
	progress, err := h.workshop.GetProgress(c.Request.Context(), workshopmod.GetProgressInput{
		WorkshopID: workshopID,
		UserID:     userID,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, progress)
}

// DELETE /api/workshops/:id
func (h *WorkshopHandler) DeleteWorkshop(c *gin.Context) {
	userID, workshopID, ok := requireWorkshop(c)
	if !ok {
		return
	}
	err := h.workshop.DeleteWorkshop(c.Request.Context(), workshopmod.DeleteWorkshopInput{
		WorkshopID: workshopID,
		UserID:     userID,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/workshops/:id/advance
func (h *WorkshopHandler) Advance(c *gin.Context) {
	userID, workshopID, ok := requireWorkshop(c)
	if !ok {
		return
	}
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.workshop.Advance(c.Request.Context(), workshopmod.AdvanceInput{
		WorkshopID:  workshopID,
		UserID:      userID,
		FromStageID: strings.TrimSpace(req.FromStageID),
		ToStageID:   strings.TrimSpace(req.ToStageID),
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	// a gate block is a normal outcome the client renders as a paywall
	response.RespondOK(c, out)
}

// GET /api/workshops/:id/gate
func (h *WorkshopHandler) CheckGate(c *gin.Context) {
	userID, workshopID, ok := requireWorkshop(c)
	if !ok {
		return
	}
	decision, err := h.workshop.CheckGate(c.Request.Context(), workshopmod.CheckGateInput{
		WorkshopID: workshopID,
		UserID:     userID,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, decision)
}

// POST /api/workshops/:id/complete
func (h *WorkshopHandler) CompleteWorkshop(c *gin.Context) {
	userID, workshopID, ok := requireWorkshop(c)
	if !ok {
		return
	}
	out, err := h.workshop.CompleteWorkshop(c.Request.Context(), workshopmod.CompleteWorkshopInput{
		WorkshopID: workshopID,
		UserID:     userID,
	})
	if err != nil {
		if len(out.IncompleteStages) > 0 {
			status, code := response.StatusFor(err)
			c.JSON(status, gin.H{
				"error":             response.APIError{Message: err.Error(), Code: code},
				"incomplete_stages": out.IncompleteStages,
			})
			return
		}
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/workshops/:id/credits/consume
func (h *WorkshopHandler) ConsumeCredit(c *gin.Context) {
	userID, workshopID, ok := requireWorkshop(c)
	if !ok {
		return
	}
	out, err := h.workshop.ConsumeCredit(c.Request.Context(), workshopmod.ConsumeCreditInput{
		WorkshopID: workshopID,
		UserID:     userID,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/credits
func (h *WorkshopHandler) GetCredits(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	balance, err := h.workshop.GetCreditBalance(c.Request.Context(), userID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"balance": balance})
}

// POST /api/workshops/:id/stages/:stage/reset
func (h *WorkshopHandler) ResetStage(c *gin.Context) {
	ref, ok := requireStage(c)
	if !ok {
		return
	}
	out, err := h.workshop.Reset(c.Request.Context(), workshopmod.ResetInput{
		WorkshopID: ref.WorkshopID,
		UserID:     ref.UserID,
		StageID:    ref.StageID,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/workshops/:id/stages/:stage/complete
func (h *WorkshopHandler) CompleteStage(c *gin.Context) {
	ref, ok := requireStage(c)
	if !ok {
		return
	}
	out, err := h.workshop.CompleteStage(c.Request.Context(), workshopmod.CompleteStageInput{
		WorkshopID: ref.WorkshopID,
		UserID:     ref.UserID,
		StageID:    ref.StageID,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/workshops/:id/stages/:stage/needs-regeneration
func (h *WorkshopHandler) MarkNeedsRegeneration(c *gin.Context) {
	ref, ok := requireStage(c)
	if !ok {
		return
	}
	flagged, err := h.workshop.MarkNeedsRegeneration(c.Request.Context(), workshopmod.MarkNeedsRegenerationInput{
		WorkshopID: ref.WorkshopID,
		UserID:     ref.UserID,
		StageID:    ref.StageID,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"flagged": flagged})
}

// GET /api/workshops/:id/stages/:stage/context
func (h *WorkshopHandler) GetContext(c *gin.Context) {
	ref, ok := requireStage(c)
	if !ok {
		return
	}
	bundle, err := h.workshop.AssembleContext(c.Request.Context(), workshopmod.AssembleContextInput{
		WorkshopID: ref.WorkshopID,
		UserID:     ref.UserID,
		StageID:    ref.StageID,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, bundle)
}

// GET /api/workshops/:id/stages/:stage/artifact
func (h *WorkshopHandler) GetArtifact(c *gin.Context) {
	ref, ok := requireStage(c)
	if !ok {
		return
	}
	row, err := h.workshop.LoadArtifact(c.Request.Context(), workshopmod.ArtifactRef(ref))
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"artifact": row})
}

// PUT /api/workshops/:id/stages/:stage/artifact
func (h *WorkshopHandler) SaveArtifact(c *gin.Context) {
	ref, ok := requireStage(c)
	if !ok {
		return
	}
	var req saveArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var (
		out workshopmod.SaveArtifactOutput
		err error
	)
	if req.ExpectedVersion == nil {
		out, err = h.workshop.SaveArtifactLatest(c.Request.Context(), workshopmod.SaveArtifactLatestInput{
			ArtifactRef:   workshopmod.ArtifactRef(ref),
			Payload:       req.Payload,
			SchemaVersion: req.SchemaVersion,
		})
	} else {
		out, err = h.workshop.SaveArtifact(c.Request.Context(), workshopmod.SaveArtifactInput{
			ArtifactRef:     workshopmod.ArtifactRef(ref),
			Payload:         req.Payload,
			SchemaVersion:   req.SchemaVersion,
			ExpectedVersion: *req.ExpectedVersion,
		})
	}
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/workshops/:id/stages/:stage/messages
func (h *WorkshopHandler) AppendMessage(c *gin.Context) {
	ref, ok := requireStage(c)
	if !ok {
		return
	}
	var req appendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	msg, err := h.workshop.AppendMessage(c.Request.Context(), workshopmod.AppendMessageInput{
		WorkshopID: ref.WorkshopID,
		UserID:     ref.UserID,
		StageID:    ref.StageID,
		Role:       req.Role,
		Content:    req.Content,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"message": msg})
}

// GET /api/workshops/:id/stages/:stage/messages
func (h *WorkshopHandler) ListMessages(c *gin.Context) {
	ref, ok := requireStage(c)
	if !ok {
		return
	}
	rows, err := h.workshop.ListMessages(c.Request.Context(), ref)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": rows})
}

// PUT /api/workshops/:id/stages/:stage/canvas
func (h *WorkshopHandler) ReplaceCanvas(c *gin.Context) {
	ref, ok := requireStage(c)
	if !ok {
		return
	}
	var req replaceCanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rows, err := h.workshop.ReplaceCanvas(c.Request.Context(), workshopmod.ReplaceCanvasInput{
		StageRef: ref,
		Items:    req.Items,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": rows})
}

// GET /api/workshops/:id/stages/:stage/canvas
func (h *WorkshopHandler) ListCanvas(c *gin.Context) {
	ref, ok := requireStage(c)
	if !ok {
		return
	}
	rows, err := h.workshop.ListCanvas(c.Request.Context(), ref)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": rows})
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondFromError(c, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing user")))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func requireWorkshop(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	workshopID, err := uuid.Parse(c.Param("id"))
	if err != nil || workshopID == uuid.Nil {
		response.RespondFromError(c, apierr.New(http.StatusBadRequest, "invalid_workshop_id", errors.New("invalid workshop id")))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, workshopID, true
}

func requireStage(c *gin.Context) (workshopmod.StageRef, bool) {
	userID, workshopID, ok := requireWorkshop(c)
	if !ok {
		return workshopmod.StageRef{}, false
	}
	stageID := strings.TrimSpace(c.Param("stage"))
	if stageID == "" {
		response.RespondFromError(c, apierr.New(http.StatusBadRequest, "invalid_stage_id", errors.New("missing stage id")))
		return workshopmod.StageRef{}, false
	}
	return workshopmod.StageRef{WorkshopID: workshopID, UserID: userID, StageID: stageID}, true
}
