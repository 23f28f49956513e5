package httpx

import (
	"errors"
	"net/http"

	"github.com/lodestar-freight/lodestar/internal/shared"
)

// statusByCode maps engine error codes to HTTP status codes. Missing rows
// are 404, state conflicts and stock exhaustion are 409, everything else in
// the taxonomy is an unprocessable request.
var statusByCode = map[shared.ErrorCode]int{
	"ALLOCATION_NOT_FOUND":        http.StatusNotFound,
	"INVENTORY_ITEM_NOT_FOUND":    http.StatusNotFound,
	"CONTAINER_NOT_FOUND":         http.StatusNotFound,
	"RECEIPT_NOT_FOUND":           http.StatusNotFound,
	"INVALID_STATE":               http.StatusConflict,
	"ALREADY_SHIPPED":             http.StatusConflict,
	"CANNOT_SPLIT_AFTER_PROGRESS": http.StatusConflict,
	"INSUFFICIENT_INVENTORY":      http.StatusConflict,
}

// RespondError writes the engine error as an RFC7807 problem, carrying the
// machine-readable code and details payload verbatim.
func RespondError(w http.ResponseWriter, err error) {
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		status, ok := statusByCode[domainErr.Code]
		if !ok {
			status = http.StatusUnprocessableEntity
		}
		JSON(w, status, ProblemDetail{
			Title:   http.StatusText(status),
			Status:  status,
			Code:    string(domainErr.Code),
			Detail:  domainErr.Message,
			Details: domainErr.Details,
		})
		return
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
