package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
	"github.com/noah-isme/attendance-api/pkg/response"
)

const maxRosterDocumentBytes = 5 << 20

type rosterService interface {
	Export(ctx context.Context, teacherID string) ([]models.RosterRecord, error)
	Import(ctx context.Context, teacherID string, document []byte, courseID string) (*models.RosterImportResult, error)
}

// RosterHandler exposes roster import and export.
type RosterHandler struct {
	roster rosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(roster rosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// Export godoc
// @Summary Export roster
// @Description Returns the roster as a bare JSON array of records
// @Tags Roster
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.RosterRecord
// @Router /roster/export [get]
func (h *RosterHandler) Export(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	records, err := h.roster.Export(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.AttachmentJSON(c, "roster.json", records)
}

// Import godoc
// @Summary Import roster
// @Description Body is a JSON array of roster records. Bad records are reported by index.
// @Tags Roster
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param course_id query string false "Assign every imported student to this course"
// @Param payload body []models.RosterRecord true "Roster records"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /roster/import [post]
func (h *RosterHandler) Import(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	document, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRosterDocumentBytes+1))
	if err != nil {
		response.Error(c, bindError(err))
		return
	}
	if len(document) > maxRosterDocumentBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "roster document too large"))
		return
	}
	result, err := h.roster.Import(c.Request.Context(), teacherID, document, c.Query("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
