package http

import "github.com/gin-gonic/gin"

func RegisterNoteRoutes(r *gin.Engine, handler *NoteHandler) {
	notes := r.Group("/notes")
	{
		notes.POST("/", handler.CreateNote)
		notes.GET("/:id", handler.GetNote)
		notes.GET("/", handler.ListNotes)
		notes.PUT("/:id", handler.UpdateNote)
		notes.DELETE("/:id", handler.DeleteNote)
	}

	draft := r.Group("/draft")
	{
		draft.PUT("/", handler.SaveDraft)
		draft.GET("/", handler.GetDraft)
		draft.DELETE("/", handler.ClearDraft)
	}

	r.GET("/outbox/count", handler.PendingCount)
	r.POST("/sync", handler.Sync)
}
