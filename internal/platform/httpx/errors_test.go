package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lodestar-freight/lodestar/internal/shared"
)

func TestRespondErrorDomainCodes(t *testing.T) {
	cases := []struct {
		code       shared.ErrorCode
		wantStatus int
	}{
		{"ALLOCATION_NOT_FOUND", http.StatusNotFound},
		{"INVENTORY_ITEM_NOT_FOUND", http.StatusNotFound},
		{"INVALID_STATE", http.StatusConflict},
		{"INSUFFICIENT_INVENTORY", http.StatusConflict},
		{"QUANTITY_MUST_BE_MONOTONIC", http.StatusUnprocessableEntity},
		{"PICK_EXCEEDS_ALLOCATED", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		err := shared.NewError(tc.code, "boom").WithDetails(map[string]any{"requested_qty": 5})
		RespondError(rec, err)

		require.Equal(t, tc.wantStatus, rec.Code, string(tc.code))
		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		require.Equal(t, string(tc.code), problem.Code)
		require.EqualValues(t, 5, problem.Details["requested_qty"])
	}
}

func TestRespondErrorUnknown(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("database exploded"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "exploded")
}
