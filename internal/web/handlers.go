package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheets/internal/logging"
	"github.com/JonMunkholm/sheets/internal/sheet"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// urlID parses a numeric URL parameter.
func urlID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// createSheetRequest is the body of POST /sheets.
type createSheetRequest struct {
	SheetName string             `json:"sheetName"`
	Columns   []sheet.ColumnSpec `json:"columns"`
}

func (s *Server) handleCreateSheet(w http.ResponseWriter, r *http.Request) {
	var req createSheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.service.CreateSheet(r.Context(), req.SheetName, req.Columns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("sheet created",
		"sheet_id", created.ID,
		"table", created.TableName,
		"columns", len(req.Columns),
	)
	writeJSON(w, map[string]any{
		"message":   "Sheet created",
		"sheetId":   created.ID,
		"tableName": created.TableName,
	})
}

func (s *Server) handleListSheets(w http.ResponseWriter, r *http.Request) {
	opts := sheet.ListOptions{IncludeColumns: true}
	if v := r.URL.Query().Get("includeColumns"); v != "" {
		opts.IncludeColumns = strings.EqualFold(v, "true")
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Offset = n
		}
	}

	sheets, err := s.service.ListSheets(r.Context(), opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"sheets": sheets})
}

func (s *Server) handleSheetColumns(w http.ResponseWriter, r *http.Request) {
	sheetID, err := urlID(r, "sheetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sh, err := s.service.GetSheet(r.Context(), sheetID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"sheetId":   sh.ID,
		"sheetName": sh.Name,
		"tableName": sh.TableName,
		"columns":   sh.Columns,
	})
}

func (s *Server) handleDeleteSheet(w http.ResponseWriter, r *http.Request) {
	sheetID, err := urlID(r, "sheetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dropped, err := s.service.DropSheet(r.Context(), sheetID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("sheet deleted",
		"sheet_id", sheetID,
		"table", dropped.TableName,
	)
	writeJSON(w, map[string]any{
		"message":      "Sheet deleted successfully",
		"deletedSheet": dropped.Name,
		"deletedTable": dropped.TableName,
	})
}

// rowRequest is the body of row create/update calls.
type rowRequest struct {
	Values map[string]any `json:"values"`
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	sheetID, err := urlID(r, "sheetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req rowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Values == nil {
		req.Values = map[string]any{}
	}

	row, err := s.service.AddRow(r.Context(), sheetID, req.Values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"message": "Row added", "row": row})
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	sheetID, err := urlID(r, "sheetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rowID, err := urlID(r, "rowID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req rowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Values == nil {
		req.Values = map[string]any{}
	}

	row, err := s.service.UpdateRow(r.Context(), sheetID, rowID, req.Values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"message": "Row updated", "row": row})
}

func (s *Server) handleGetRow(w http.ResponseWriter, r *http.Request) {
	sheetID, err := urlID(r, "sheetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rowID, err := urlID(r, "rowID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := s.service.GetRow(r.Context(), sheetID, rowID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"row": row})
}

func (s *Server) handleCheckTable(w http.ResponseWriter, r *http.Request) {
	available, err := s.service.CheckTableAvailability(r.Context(), r.URL.Query().Get("tableName"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	status := "Available"
	if !available {
		status = "Already taken"
	}
	writeJSON(w, map[string]string{"status": status})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sheetID, err := urlID(r, "sheetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	export, err := s.service.FetchSheetForExport(r.Context(), sheetID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("link"), "true") {
		if s.store == nil {
			writeError(w, http.StatusBadRequest, "blob storage is not configured")
			return
		}
		data, err := export.Bytes()
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		blobName := fmt.Sprintf("exports/%s_%s.xlsx", export.Sheet.TableName, uuid.New().String())
		link, err := s.store.UploadWorkbook(r.Context(), blobName, data)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		logging.FromContext(r.Context()).Info("export link generated",
			"sheet_id", sheetID,
			"blob", blobName,
			"rows", len(export.Rows),
		)
		writeJSON(w, map[string]any{
			"message":   "Export uploaded",
			"url":       link.URL,
			"expiresAt": link.ExpiresAt,
		})
		return
	}

	f, err := export.Workbook()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Sheet.Name+".xlsx"))
	if err := f.Write(w); err != nil {
		logging.FromContext(r.Context()).Error("export write failed", "error", err)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.uploads.acquire(r.Context()); err != nil {
		if errors.Is(err, ErrTooManyUploads) {
			w.Header().Set("Retry-After", "10")
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		s.respondError(w, r, err)
		return
	}
	defer s.uploads.release()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, `no file uploaded (field name must be "file")`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	opts := sheet.UploadOptions{
		SheetName: r.FormValue("sheetName"),
		Worksheet: r.FormValue("worksheet"),
	}
	if v := r.FormValue("sampleSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.SampleSize = n
		}
	}

	preview := strings.EqualFold(r.FormValue("preview"), "true") ||
		strings.EqualFold(r.URL.Query().Get("preview"), "true")

	logger := logging.FromContext(r.Context())
	if preview {
		result, err := s.service.PreviewWorkbook(r.Context(), data, opts)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		logger.Info("upload previewed",
			"worksheet", result.Worksheet,
			"rows", result.DetectedRows,
			"warnings", len(result.Warnings),
		)
		writeJSON(w, result)
		return
	}

	result, err := s.service.ImportWorkbook(r.Context(), data, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logger.Info("upload imported",
		"sheet_id", result.SheetID,
		"table", result.TableName,
		"rows", result.RowsInserted,
	)
	writeJSON(w, result)
}
