package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/printops/usagehub/internal/storage"
)

// Handlers handles HTTP requests for saved reports
type Handlers struct {
	service        *Service
	maxUploadBytes int64
}

// NewHandlers creates new handlers. maxUploadMB bounds the parse upload size.
func NewHandlers(service *Service, maxUploadMB int) *Handlers {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &Handlers{
		service:        service,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

// HandleParse handles POST /v1/parse: a multipart upload of one vendor HTML
// export, returning the parsed period without persisting anything.
func (h *Handlers) HandleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "Expected a multipart upload with a 'file' part")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", "The 'file' part is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "Failed to read uploaded file")
		return
	}

	period, err := h.service.ParseDocument(content, header.Filename)
	if err != nil {
		// The upload is rejected whole; no period is produced.
		writeError(w, http.StatusUnprocessableEntity, "parse_failed",
			fmt.Sprintf("Failed to parse %s: %v", header.Filename, err))
		return
	}

	writeJSON(w, http.StatusOK, period)
}

// HandleSave handles POST /v1/reports
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req SaveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	report, err := h.service.SaveReport(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// HandleList handles GET /v1/reports
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListReports(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ReportListResponse{Reports: items})
}

// HandleGet handles GET /v1/reports/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleUpdate handles PUT /v1/reports/{id}
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req SaveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	report, err := h.service.UpdateReport(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleDelete handles DELETE /v1/reports/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteReport(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRenameIdentity handles POST /v1/reports/{id}/users/rename
func (h *Handlers) HandleRenameIdentity(w http.ResponseWriter, r *http.Request) {
	var req RenameIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	report, err := h.service.RenameIdentity(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleDeleteIdentities handles POST /v1/reports/{id}/users/delete
func (h *Handlers) HandleDeleteIdentities(w http.ResponseWriter, r *http.Request) {
	var req DeleteIdentitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	report, err := h.service.DeleteIdentities(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleSummary handles GET /v1/reports/{id}/summary
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summarize(r.Context(), r.PathValue("id"),
		csvParam(r, "periods"), csvParam(r, "printers"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleExport handles GET /v1/reports/{id}/export?format=csv|pdf
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		writeError(w, http.StatusBadRequest, "invalid_format", "Format must be 'csv' or 'pdf'")
		return
	}

	report, err := h.service.GetReport(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	summary, err := h.service.Summarize(r.Context(), id,
		csvParam(r, "periods"), csvParam(r, "printers"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case FormatPDF:
		data, err = ExportPDF(report.ReportName, summary)
		contentType = "application/pdf"
	default:
		data, err = ExportCSV(summary)
		contentType = "text/csv"
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}

	filename := fmt.Sprintf("%s.%s", Slug(report.ReportName), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Write(data)
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "report_not_found", "Report not found")
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, "duplicate_name", "A report with this name already exists for this user")
	case errors.Is(err, ErrEmptyReportName):
		writeError(w, http.StatusBadRequest, "empty_name", "Report name is required")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// Helper functions

func csvParam(r *http.Request, key string) []string {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
