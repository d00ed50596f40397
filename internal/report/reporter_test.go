package report

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bunyaminoter/parkingAutomation/internal/httputil"
)

func TestReportSighting(t *testing.T) {
	t.Run("posts plate and confidence as form data", func(t *testing.T) {
		mock := httputil.NewMockHTTPClient()
		mock.AddResponse(http.StatusOK, `{"status":"ok"}`)
		client := NewLedgerClient("http://localhost:8000/", mock)

		err := client.ReportSighting("34ABC56", 0.85)
		require.NoError(t, err)

		require.Equal(t, 1, mock.RequestCount())
		req := mock.GetRequest(0)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "http://localhost:8000/api/manual_entry", req.URL.String())
		assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))

		assert.Equal(t, "confidence=0.85&plate_number=34ABC56", mock.GetBody(0))
	})

	t.Run("non-2xx is an error but not a panic", func(t *testing.T) {
		mock := httputil.NewMockHTTPClient()
		mock.AddResponse(http.StatusUnprocessableEntity, `{"detail":"invalid plate"}`)
		client := NewLedgerClient("http://localhost:8000", mock)

		err := client.ReportSighting("34ABC56", 0.85)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "422")
		assert.Contains(t, err.Error(), "invalid plate")
	})

	t.Run("transport error is wrapped", func(t *testing.T) {
		mock := httputil.NewMockHTTPClient()
		mock.AddErrorResponse(errors.New("connection refused"))
		client := NewLedgerClient("http://localhost:8000", mock)

		err := client.ReportSighting("34ABC56", 0.85)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "connection refused"))
	})
}
