package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ficha-clinica-api/internal/dto"
	"github.com/noah-isme/ficha-clinica-api/internal/service"
	appErrors "github.com/noah-isme/ficha-clinica-api/pkg/errors"
	"github.com/noah-isme/ficha-clinica-api/pkg/response"
)

// FormHandler drives the per-patient session form. All section writes are
// asynchronous autosaves; handlers respond 202 with the current snapshot
// and clients observe the final outcome through the form state.
type FormHandler struct {
	forms *service.FormManager
}

// NewFormHandler constructs FormHandler.
func NewFormHandler(forms *service.FormManager) *FormHandler {
	return &FormHandler{forms: forms}
}

// Open bootstraps (or returns) the live form for the patient.
func (h *FormHandler) Open(c *gin.Context) {
	form := h.forms.Open(c.Param("id"))
	response.JSON(c, http.StatusOK, form.State())
}

// State returns the current form snapshot.
func (h *FormHandler) State(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, form.State())
}

// Close disposes the patient's form.
func (h *FormHandler) Close(c *gin.Context) {
	h.forms.Close(c.Param("id"))
	response.NoContent(c)
}

// Save requests an explicit full flush of the form.
func (h *FormHandler) Save(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	form.SaveSession()
	response.Accepted(c, form.State())
}

// PatchPatient applies a field-level edit to the patient row.
func (h *FormHandler) PatchPatient(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var patch dto.PatientPatch
	if !h.bind(c, &patch) {
		return
	}
	form.UpdatePatient(patch.Apply)
	response.Accepted(c, form.State())
}

// PatchSession applies a field-level edit to the session row.
func (h *FormHandler) PatchSession(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var patch dto.SessionPatch
	if !h.bind(c, &patch) {
		return
	}
	form.UpdateSession(patch.Apply)
	response.Accepted(c, form.State())
}

// PatchProblemGoals edits the goals section.
func (h *FormHandler) PatchProblemGoals(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var patch dto.ProblemGoalsPatch
	if !h.bind(c, &patch) {
		return
	}
	form.UpdateProblemGoals(patch.Apply)
	response.Accepted(c, form.State())
}

// PatchPsychometrics edits the psychometric scores section.
func (h *FormHandler) PatchPsychometrics(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var patch dto.PsychometricsPatch
	if !h.bind(c, &patch) {
		return
	}
	form.UpdatePsychometrics(patch.Apply)
	response.Accepted(c, form.State())
}

// PatchDysregulation edits the dysregulation areas section.
func (h *FormHandler) PatchDysregulation(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var patch dto.DysregulationPatch
	if !h.bind(c, &patch) {
		return
	}
	form.UpdateDysregulation(patch.Apply)
	response.Accepted(c, form.State())
}

// PatchBiosocial edits the biosocial model section.
func (h *FormHandler) PatchBiosocial(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var patch dto.BiosocialPatch
	if !h.bind(c, &patch) {
		return
	}
	form.UpdateBiosocial(patch.Apply)
	response.Accepted(c, form.State())
}

// PatchTasks edits the free-text tasks section.
func (h *FormHandler) PatchTasks(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var patch dto.TasksPatch
	if !h.bind(c, &patch) {
		return
	}
	form.UpdateTasks(patch.Apply)
	response.Accepted(c, form.State())
}

// PatchProblemChain edits one behavioral chain entry by label.
func (h *FormHandler) PatchProblemChain(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var patch dto.ProblemChainPatch
	if !h.bind(c, &patch) {
		return
	}
	form.UpdateProblemChain(patch.Label, patch.Apply)
	response.Accepted(c, form.State())
}

// PutTreatmentObjective records one staged objective value.
func (h *FormHandler) PutTreatmentObjective(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var req dto.TreatmentObjectiveSet
	if !h.bind(c, &req) {
		return
	}
	form.SetTreatmentObjective(req.Stage, req.Field, req.Value)
	response.Accepted(c, form.State())
}

// AddProblemAnalysis appends a fresh numbered analysis.
func (h *FormHandler) AddProblemAnalysis(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	form.AddProblemAnalysis()
	response.Accepted(c, form.State())
}

// PatchProblemAnalysis edits one analysis by number.
func (h *FormHandler) PatchProblemAnalysis(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var patch dto.ProblemAnalysisPatch
	if !h.bind(c, &patch) {
		return
	}
	form.UpdateProblemAnalysis(patch.ProblemNumber, patch.Apply)
	response.Accepted(c, form.State())
}

// RemoveProblemAnalysis drops one analysis by number.
func (h *FormHandler) RemoveProblemAnalysis(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var req struct {
		ProblemNumber int `json:"problem_number" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	form.RemoveProblemAnalysis(req.ProblemNumber)
	response.Accepted(c, form.State())
}

// AddEvolutionNote opens a titled progress note.
func (h *FormHandler) AddEvolutionNote(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var req dto.EvolutionNoteCreate
	if !h.bind(c, &req) {
		return
	}
	form.AddEvolutionNote(req.Titulo)
	response.Accepted(c, form.State())
}

// PatchEvolutionNote edits one note by id.
func (h *FormHandler) PatchEvolutionNote(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var patch dto.EvolutionNotePatch
	if !h.bind(c, &patch) {
		return
	}
	form.UpdateEvolutionNote(patch.ID, patch.Apply)
	response.Accepted(c, form.State())
}

// RemoveEvolutionNote drops one note by id.
func (h *FormHandler) RemoveEvolutionNote(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var req struct {
		ID int64 `json:"id" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	form.RemoveEvolutionNote(req.ID)
	response.Accepted(c, form.State())
}

// Attach runs the ingestion pipeline. Accepts either a JSON body with
// local source paths or a multipart form whose "files" parts are staged
// to a temp directory first.
func (h *FormHandler) Attach(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		sources, err := h.stageUploads(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		form.AttachFiles(sources)
		response.Accepted(c, form.State())
		return
	}

	var req dto.AttachRequest
	if !h.bind(c, &req) {
		return
	}
	form.AttachFiles(req.Sources)
	response.Accepted(c, form.State())
}

// stageUploads writes multipart files to a temp directory so the
// ingestion pipeline can consume them as regular local paths.
func (h *FormHandler) stageUploads(c *gin.Context) ([]string, error) {
	mpForm, err := c.MultipartForm()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart payload")
	}
	files := mpForm.File["files"]
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one file is required")
	}

	dir, err := os.MkdirTemp("", "ficha-upload-*")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage uploads")
	}

	sources := make([]string, 0, len(files))
	for _, fh := range files {
		dst := filepath.Join(dir, filepath.Base(fh.Filename))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage uploads")
		}
		sources = append(sources, dst)
	}
	return sources, nil
}

// RemoveAttachment unlinks one attachment by id.
func (h *FormHandler) RemoveAttachment(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	form.RemoveAttachment(c.Param("attachmentId"))
	response.Accepted(c, form.State())
}

func (h *FormHandler) form(c *gin.Context) (*service.FormService, bool) {
	form := h.forms.Get(c.Param("id"))
	if form == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no open form for patient"))
		return nil, false
	}
	return form, true
}

func (h *FormHandler) bind(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}
