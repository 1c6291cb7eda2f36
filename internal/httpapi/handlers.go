package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/substudio/subtitle-translator/internal/jobs"
	"github.com/substudio/subtitle-translator/internal/storage"
	"github.com/substudio/subtitle-translator/internal/subtitle"
	"github.com/substudio/subtitle-translator/internal/translate"
	"github.com/substudio/subtitle-translator/pkg/log"
)

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, servicesResponse{
		Default:  translate.DefaultServiceID,
		Services: s.engine.ServiceInfo(),
	})
}

type servicesResponse struct {
	Default  string                    `json:"default"`
	Services map[string]translate.Info `json:"services"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, languagesResponse{
		Languages: supportedLanguages(),
		Formats:   subtitle.SupportedFormats(),
	})
}

type languagesResponse struct {
	Languages []languageOption `json:"languages"`
	Formats   []string         `json:"formats"`
}

type uploadResponse struct {
	UploadID string          `json:"upload_id"`
	Files    []jobs.FileInfo `json:"files"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}
	if len(headers) > s.maxFilesPerBatch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many files: limit is %d per batch", s.maxFilesPerBatch))
		return
	}

	uploadID := uuid.NewString()
	infos := make([]jobs.FileInfo, 0, len(headers))
	for _, header := range headers {
		info, err := s.saveUploadedFile(uploadID, header)
		if err != nil {
			_ = s.files.RemoveUpload(uploadID)
			status := http.StatusBadRequest
			if errors.Is(err, storage.ErrFileTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeError(w, status, fmt.Sprintf("%s: %v", header.Filename, err))
			return
		}
		infos = append(infos, info)
	}

	writeJSON(w, http.StatusOK, uploadResponse{UploadID: uploadID, Files: infos})
}

func (s *Server) saveUploadedFile(uploadID string, header *multipart.FileHeader) (jobs.FileInfo, error) {
	format := storage.FormatTag(header.Filename)
	if !slices.Contains(subtitle.SupportedFormats(), format) {
		return jobs.FileInfo{}, fmt.Errorf("unsupported format %q", format)
	}

	src, err := header.Open()
	if err != nil {
		return jobs.FileInfo{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	saved, err := s.files.SaveUpload(uploadID, header.Filename, src)
	if err != nil {
		return jobs.FileInfo{}, err
	}

	// Parse once at upload time so bad files are rejected before a job
	// ever runs, and so the client sees entry counts and a language guess.
	raw, err := s.files.ReadUpload(uploadID, saved.Name)
	if err != nil {
		return jobs.FileInfo{}, fmt.Errorf("read upload back: %w", err)
	}
	entries, err := subtitle.Parse(raw, format)
	if err != nil {
		return jobs.FileInfo{}, fmt.Errorf("parse: %w", err)
	}

	detected := ""
	if tag := subtitle.DetectLanguage(entries); tag != language.Und {
		detected = tag.String()
	}

	return jobs.FileInfo{
		Name:         saved.Name,
		Format:       format,
		Path:         saved.Path,
		SizeBytes:    saved.SizeBytes,
		DetectedLang: detected,
		EntryCount:   len(entries),
	}, nil
}

type translateRequest struct {
	UploadID      string `json:"upload_id"`
	SourceLang    string `json:"source_lang"`
	TargetLang    string `json:"target_lang"`
	Service       string `json:"service"`
	UseContext    *bool  `json:"use_context"`
	ContextWindow int    `json:"context_window"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.UploadID == "" {
		writeError(w, http.StatusBadRequest, "upload_id is required")
		return
	}
	if req.TargetLang == "" {
		writeError(w, http.StatusBadRequest, "target_lang is required")
		return
	}
	if req.SourceLang == "" {
		req.SourceLang = "auto"
	}
	if req.Service == "" {
		req.Service = translate.DefaultServiceID
	}

	saved, err := s.files.ListUpload(req.UploadID)
	if err != nil || len(saved) == 0 {
		writeError(w, http.StatusNotFound, "upload not found")
		return
	}
	files := make([]jobs.FileInfo, 0, len(saved))
	for _, f := range saved {
		files = append(files, jobs.FileInfo{
			Name:      f.Name,
			Format:    storage.FormatTag(f.Name),
			Path:      f.Path,
			SizeBytes: f.SizeBytes,
		})
	}

	useContext := s.defaultUseContext
	if req.UseContext != nil {
		useContext = *req.UseContext
	}
	window := req.ContextWindow
	if window <= 0 {
		window = s.defaultContextWindow
	}

	job, created := s.queue.Enqueue(jobs.EnqueueRequest{
		UploadID: req.UploadID,
		Params: jobs.Params{
			SourceLang:    req.SourceLang,
			TargetLang:    req.TargetLang,
			Service:       req.Service,
			UseContext:    useContext,
			ContextWindow: window,
		},
		Files: files,
	})
	code := http.StatusCreated
	if !created {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]any{
		"created": created,
		"job":     job,
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.queue.List())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, ok := s.jobFromPath(w, r, "/api/status/")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, ok := s.jobFromPath(w, r, "/api/download/")
	if !ok {
		return
	}
	if job.Status != jobs.StatusSuccess {
		writeError(w, http.StatusConflict, fmt.Sprintf("job is %s, not finished", job.Status))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "translated-"+job.ID+".zip"))
	if err := s.files.ZipOutputs(job.ID, w); err != nil {
		// Headers are already out; all we can do is log.
		log.Error("Failed to stream zip for job %s: %v", job.ID, err)
	}
}

type editFile struct {
	Name    string `json:"name"`
	Format  string `json:"format"`
	Content string `json:"content"`
}

type editResponse struct {
	JobID string     `json:"job_id"`
	Files []editFile `json:"files"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, ok := s.jobFromPath(w, r, "/api/edit/")
	if !ok {
		return
	}
	if job.Status != jobs.StatusSuccess {
		writeError(w, http.StatusConflict, fmt.Sprintf("job is %s, not finished", job.Status))
		return
	}

	files := make([]editFile, 0, len(job.Results))
	for _, res := range job.Results {
		if res.Error != "" {
			continue
		}
		data, err := s.files.ReadOutput(job.ID, res.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("read output %s: %v", res.Name, err))
			return
		}
		files = append(files, editFile{
			Name:    res.Name,
			Format:  storage.FormatTag(res.Name),
			Content: string(data),
		})
	}
	writeJSON(w, http.StatusOK, editResponse{JobID: job.ID, Files: files})
}

type saveRequest struct {
	Files []editFile `json:"files"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, ok := s.jobFromPath(w, r, "/api/save/")
	if !ok {
		return
	}
	if job.Status != jobs.StatusSuccess {
		writeError(w, http.StatusConflict, fmt.Sprintf("job is %s, not finished", job.Status))
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	known := make(map[string]bool, len(job.Results))
	for _, res := range job.Results {
		known[res.Name] = true
	}
	for _, f := range req.Files {
		if !known[f.Name] {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file %q does not belong to job %s", f.Name, job.ID))
			return
		}
	}

	for _, f := range req.Files {
		if _, err := s.files.WriteOutput(job.ID, f.Name, []byte(f.Content)); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("write output %s: %v", f.Name, err))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "saved": len(req.Files)})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, ok := s.jobFromPath(w, r, "/api/delete/")
	if !ok {
		return
	}
	if !s.queue.Delete(job.ID) {
		writeError(w, http.StatusConflict, "job is still in progress")
		return
	}

	_ = s.files.RemoveUpload(job.UploadID)
	_ = s.files.RemoveOutput(job.ID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// jobFromPath extracts the job id from the URL, looks it up and writes the
// error response itself when the job does not exist.
func (s *Server) jobFromPath(w http.ResponseWriter, r *http.Request, prefix string) (*jobs.TranslationJob, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	id = strings.TrimSuffix(id, "/")
	if decoded, err := url.PathUnescape(id); err == nil {
		id = decoded
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return nil, false
	}
	job, ok := s.queue.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	return job, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
