package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers bundles every endpoint group for route registration.
type Handlers struct {
	Patients *PatientHandler
	Forms    *FormHandler
	Sessions *SessionHandler
	Exports  *ExportHandler
	Metrics  http.Handler
}

// RegisterRoutes wires the REST surface under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group(prefix)

	patients := api.Group("/patients")
	patients.GET("", h.Patients.List)
	patients.POST("", h.Patients.Create)
	patients.GET("/watch", h.Patients.Watch)
	patients.GET("/:id", h.Patients.Get)
	patients.PUT("/:id", h.Patients.Update)
	patients.DELETE("/:id", h.Patients.Delete)

	patients.POST("/:id/sessions", h.Sessions.Create)
	patients.GET("/:id/sessions", h.Sessions.ListByPatient)
	patients.GET("/:id/sessions/watch", h.Sessions.Watch)

	form := patients.Group("/:id/form")
	form.POST("", h.Forms.Open)
	form.GET("", h.Forms.State)
	form.DELETE("", h.Forms.Close)
	form.POST("/save", h.Forms.Save)
	form.PATCH("/patient", h.Forms.PatchPatient)
	form.PATCH("/session", h.Forms.PatchSession)
	form.PATCH("/problem-goals", h.Forms.PatchProblemGoals)
	form.PATCH("/psychometrics", h.Forms.PatchPsychometrics)
	form.PATCH("/dysregulation", h.Forms.PatchDysregulation)
	form.PATCH("/biosocial", h.Forms.PatchBiosocial)
	form.PATCH("/tasks", h.Forms.PatchTasks)
	form.PATCH("/problem-chains", h.Forms.PatchProblemChain)
	form.PUT("/treatment-objectives", h.Forms.PutTreatmentObjective)
	form.POST("/problem-analyses", h.Forms.AddProblemAnalysis)
	form.PATCH("/problem-analyses", h.Forms.PatchProblemAnalysis)
	form.DELETE("/problem-analyses", h.Forms.RemoveProblemAnalysis)
	form.POST("/evolution-notes", h.Forms.AddEvolutionNote)
	form.PATCH("/evolution-notes", h.Forms.PatchEvolutionNote)
	form.DELETE("/evolution-notes", h.Forms.RemoveEvolutionNote)
	form.POST("/attachments", h.Forms.Attach)
	form.DELETE("/attachments/:attachmentId", h.Forms.RemoveAttachment)

	sessions := api.Group("/sessions")
	sessions.GET("/:sessionId", h.Sessions.Get)
	sessions.DELETE("/:sessionId", h.Sessions.Delete)
	sessions.GET("/:sessionId/record", h.Sessions.Aggregate)
	sessions.GET("/:sessionId/history", h.Sessions.History)

	api.GET("/attachments/:attachmentId/link", h.Sessions.AttachmentLink)
	api.GET("/attachments/download/:token", h.Sessions.DownloadAttachment)

	exports := api.Group("/exports")
	exports.POST("", h.Exports.Request)
	exports.GET("/:jobId", h.Exports.Status)
	exports.GET("/download/:token", h.Exports.Download)
}
