package response

import (
	"eventhub/internal/shared/apperrors"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// ErrorDetail tells clients which error kind occurred
type ErrorDetail struct {
	Kind   apperrors.Kind `json:"kind"`
	Detail string         `json:"detail,omitempty"`
}

// RespondError answers with the status and kind that match err. Internal
// errors carry no detail.
func RespondError(c *gin.Context, message string, err error) {
	code := apperrors.HTTPStatus(err)
	detail := ErrorDetail{Kind: apperrors.KindOf(err)}
	if detail.Kind != apperrors.KindInternal {
		detail.Detail = err.Error()
	}
	_ = c.Error(err)
	RespondJSON(c, "error", code, message, nil, detail)
}
