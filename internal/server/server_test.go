package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extraction"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, maxUpload int64, withRuns bool) *Server {
	t.Helper()
	var runs RunStore
	if withRuns {
		repo, err := repository.OpenSQLite(context.Background(), ":memory:", nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close() })
		runs = repo
	}
	return New(extraction.New(), runs, maxUpload, nil)
}

func uploadRequest(t *testing.T, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/extractions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestExtractUploadAndFetch(t *testing.T) {
	s := newTestServer(t, 1<<20, true)

	req := uploadRequest(t, "march.txt", "text/plain", []byte("Invoice Number: INV-2024-77\nInvoice Date: 15/03/2024\nTotal: $1,234.56"))
	req.Header.Set("X-Request-ID", "req-123")
	w := serve(s, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	var run entity.ExtractionRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, "march.txt", run.Filename)
	assert.Equal(t, "USD", run.Fields.Currency)
	assert.Equal(t, "INV-2024-77", run.Fields.InvoiceNumber)
	assert.Equal(t, "2024-03-15", run.Fields.BillingDate)
	require.NotNil(t, run.Fields.Amount)
	assert.Equal(t, "1234.56", run.Fields.Amount.StringFixed(2))

	w = serve(s, httptest.NewRequest(http.MethodGet, "/v1/extractions/"+run.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var fetched entity.ExtractionRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, run.ID, fetched.ID)
	assert.Equal(t, run.Fields.InvoiceNumber, fetched.Fields.InvoiceNumber)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/v1/extractions?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Runs []entity.ExtractionRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, run.ID, list.Runs[0].ID)
}

func TestExtractRejectsBadUploads(t *testing.T) {
	s := newTestServer(t, 256, false)

	req := httptest.NewRequest(http.MethodPost, "/v1/extractions", strings.NewReader("nope"))
	req.Header.Set("Content-Type", "text/plain")
	w := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(s, uploadRequest(t, "big.txt", "text/plain", bytes.Repeat([]byte("a"), 4096)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestExtractWithoutRunLog(t *testing.T) {
	s := newTestServer(t, 1<<20, false)

	w := serve(s, uploadRequest(t, "AWS-INV-2024-0099.pdf", "application/pdf", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var run entity.ExtractionRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, "AWS", run.Fields.Provider)
	assert.Equal(t, "filename", run.Method)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/v1/extractions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetAndListErrors(t *testing.T) {
	s := newTestServer(t, 1<<20, true)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/v1/extractions/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, id := range []string{"not-a-uuid", "1234", "'%20OR%201=1"} {
		w = serve(s, httptest.NewRequest(http.MethodGet, "/v1/extractions/"+id, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
		assert.Contains(t, w.Body.String(), "invalid run id", id)
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/v1/extractions?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/v1/extractions", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0, true)
	w := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

type panicEngine struct{}

func (panicEngine) Run(context.Context, entity.ExtractionInput) extraction.Report {
	panic("boom")
}

func TestRecovery(t *testing.T) {
	s := New(panicEngine{}, nil, 0, nil)
	w := serve(s, uploadRequest(t, "a.txt", "text/plain", []byte("x")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "request_id")
}

func TestRequestIDStoresScopedLogger(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "caller id", header: "req-123"},
		{name: "generated id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			r := gin.New()
			r.Use(RequestID(logger))
			r.GET("/ping", func(c *gin.Context) {
				common.LoggerFromContext(c.Request.Context(), nil).Info("handler.ping")
				c.Status(http.StatusNoContent)
			})
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set(headerRequestID, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			id := w.Header().Get(headerRequestID)
			require.NotEmpty(t, id)
			if tt.header != "" {
				assert.Equal(t, tt.header, id)
			}
			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, "handler.ping", line["msg"])
			assert.Equal(t, id, line["request_id"])
		})
	}
}
