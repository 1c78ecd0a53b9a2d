package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davicafu/notelab/internal/notes/application"
	"github.com/davicafu/notelab/internal/notes/domain"
	"github.com/davicafu/notelab/pkg/utils"
)

// NoteHandler encapsula los endpoints HTTP relacionados con notas. La
// identidad del usuario llega en la cabecera X-User-ID: la validación de
// sesión es responsabilidad del proveedor de auth, externo a este core.
type NoteHandler struct {
	service *application.NoteService
}

// NewNoteHandler crea un nuevo NoteHandler
func NewNoteHandler(service *application.NoteService) *NoteHandler {
	return &NoteHandler{service: service}
}

func userID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

func requireUser(c *gin.Context) (string, bool) {
	uid := userID(c)
	if uid == "" {
		utils.SendError(c, http.StatusUnauthorized, "missing X-User-ID header")
		return "", false
	}
	return uid, true
}

// ---------------- Handlers ----------------

// CreateNote endpoint POST /notes
func (h *NoteHandler) CreateNote(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	var req struct {
		Title   string `json:"title" binding:"required"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	outcome, err := h.service.CreateNote(c.Request.Context(), uid, req.Title, req.Content)
	if err != nil {
		utils.SendInternalServerError(c, err.Error())
		return
	}

	if outcome.Queued {
		// Encolada para sincronizar: el cliente se queda con el temp_id.
		c.JSON(http.StatusAccepted, outcome)
		return
	}
	c.JSON(http.StatusCreated, outcome.Note)
}

// GetNote endpoint GET /notes/:id
func (h *NoteHandler) GetNote(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid note id")
		return
	}

	note, err := h.service.GetNote(c.Request.Context(), uid, id)
	if err != nil {
		if err == domain.ErrNoteNotFound {
			utils.SendNotFound(c, "note not found")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, note)
}

// ListNotes endpoint GET /notes
func (h *NoteHandler) ListNotes(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	f := domain.NoteFilter{UserID: uid}

	if title := c.Query("title"); title != "" {
		f.Title = &title
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			limit = v
		}
	}
	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil {
			offset = v
		}
	}
	f.Pagination = domain.Pagination{Limit: limit, Offset: offset}
	f.OldestFirst = c.Query("order") == "asc"

	notes, err := h.service.ListNotes(c.Request.Context(), f)
	if err != nil {
		utils.SendInternalServerError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, notes)
}

// UpdateNote endpoint PUT /notes/:id
func (h *NoteHandler) UpdateNote(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	var req struct {
		Title   *string `json:"title,omitempty"`
		Content *string `json:"content,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	outcome, err := h.service.UpdateNote(c.Request.Context(), uid, c.Param("id"), req.Title, req.Content)
	if err != nil {
		if err == domain.ErrNoteNotFound {
			utils.SendNotFound(c, "note not found")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	if outcome.Queued {
		c.JSON(http.StatusAccepted, outcome)
		return
	}
	c.JSON(http.StatusOK, outcome.Note)
}

// DeleteNote endpoint DELETE /notes/:id
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	outcome, err := h.service.DeleteNote(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		if err == domain.ErrNoteNotFound {
			utils.SendNotFound(c, "note not found")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	if outcome.Queued {
		c.JSON(http.StatusAccepted, outcome)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------------- Borradores ----------------

// SaveDraft endpoint PUT /draft
func (h *NoteHandler) SaveDraft(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	h.service.SaveDraft(c.Request.Context(), uid, req.Content)
	c.Status(http.StatusNoContent)
}

// GetDraft endpoint GET /draft
func (h *NoteHandler) GetDraft(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	d := h.service.LoadDraft(c.Request.Context(), uid)
	if d == nil {
		utils.SendNotFound(c, "no draft")
		return
	}
	c.JSON(http.StatusOK, d)
}

// ClearDraft endpoint DELETE /draft
func (h *NoteHandler) ClearDraft(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	h.service.ClearDraft(c.Request.Context(), uid)
	c.Status(http.StatusNoContent)
}

// ---------------- Sincronización ----------------

// PendingCount endpoint GET /outbox/count
func (h *NoteHandler) PendingCount(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": h.service.PendingCount(c.Request.Context(), uid)})
}

// Sync endpoint POST /sync (reintento manual desde la UI)
func (h *NoteHandler) Sync(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	result, err := h.service.Sync(c.Request.Context(), uid)
	if err != nil {
		utils.SendInternalServerError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}
