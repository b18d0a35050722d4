package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-api/internal/middleware"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
	"github.com/noah-isme/attendance-api/pkg/response"
)

// teacherFromContext returns the authenticated teacher id, writing a 401 when absent.
func teacherFromContext(c *gin.Context) (string, bool) {
	teacherID := middleware.TeacherID(c)
	if teacherID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return teacherID, true
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}

func bindError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}
