package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substudio/subtitle-translator/internal/jobs"
	"github.com/substudio/subtitle-translator/internal/storage"
	"github.com/substudio/subtitle-translator/internal/translate"
)

const sampleSRT = "1\n00:00:01,000 --> 00:00:03,500\nHello world\n\n2\n00:00:04,000 --> 00:00:06,000\nHow are you?\n"

func newTestServer(t *testing.T) (*Server, *jobs.Queue, *storage.Manager) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewManager(filepath.Join(dir, "uploads"), filepath.Join(dir, "outputs"), 1)
	require.NoError(t, err)

	engine := translate.NewEngine(translate.Config{})
	queue := jobs.NewQueue(1, nil)
	srv := NewServer(engine, queue, files, WithUploadLimits(3, 1))
	return srv, queue, files
}

func multipartBody(t *testing.T, names map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range names {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func uploadFiles(t *testing.T, srv *Server, names map[string]string) uploadResponse {
	t.Helper()
	body, contentType := multipartBody(t, names)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServer_Services(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp servicesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "google", resp.Default)
	require.Contains(t, resp.Services, "google")
	assert.True(t, resp.Services["google"].Available)
	assert.Equal(t, "free", resp.Services["google"].CostClass)
	require.Contains(t, resp.Services, "gemini")
	assert.False(t, resp.Services["gemini"].Available)
	assert.True(t, resp.Services["gemini"].SupportsContext)
}

func TestServer_Languages(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/languages", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp languagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Languages)
	assert.Equal(t, "auto", resp.Languages[0].Code)
	assert.Contains(t, resp.Formats, "srt")

	var german string
	for _, lang := range resp.Languages {
		if lang.Code == "de" {
			german = lang.Name
		}
	}
	assert.Equal(t, "German", german)
}

func TestServer_Upload(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := uploadFiles(t, srv, map[string]string{"movie.srt": sampleSRT})
	require.NotEmpty(t, resp.UploadID)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "movie.srt", resp.Files[0].Name)
	assert.Equal(t, "srt", resp.Files[0].Format)
	assert.Equal(t, 2, resp.Files[0].EntryCount)
	assert.NotEmpty(t, resp.Files[0].DetectedLang)
}

func TestServer_Upload_RejectsUnsupportedFormat(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{"notes.txt": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported format")
}

func TestServer_Upload_RejectsTooManyFiles(t *testing.T) {
	srv, _, _ := newTestServer(t)

	files := map[string]string{
		"a.srt": sampleSRT, "b.srt": sampleSRT,
		"c.srt": sampleSRT, "d.srt": sampleSRT,
	}
	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many files")
}

func TestServer_Translate_CreatesJobAndDeduplicates(t *testing.T) {
	srv, queue, _ := newTestServer(t)

	upload := uploadFiles(t, srv, map[string]string{"movie.srt": sampleSRT})

	payload, _ := json.Marshal(map[string]any{
		"upload_id":   upload.UploadID,
		"target_lang": "de",
		"service":     "google",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/translate", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Created bool                `json:"created"`
		Job     jobs.TranslationJob `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Created)
	assert.Equal(t, "auto", resp.Job.Params.SourceLang)
	assert.Equal(t, "de", resp.Job.Params.TargetLang)
	require.Len(t, resp.Job.Files, 1)

	_, ok := queue.Get(resp.Job.ID)
	require.True(t, ok)

	// Same upload again while the first job is still pending.
	req = httptest.NewRequest(http.MethodPost, "/api/translate", bytes.NewReader(payload))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Translate_UnknownUpload(t *testing.T) {
	srv, _, _ := newTestServer(t)

	payload, _ := json.Marshal(map[string]any{
		"upload_id":   "nope",
		"target_lang": "de",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/translate", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Status(t *testing.T) {
	srv, queue, _ := newTestServer(t)

	job, _ := queue.Enqueue(jobs.EnqueueRequest{UploadID: "u1"})

	req := httptest.NewRequest(http.MethodGet, "/api/status/"+job.ID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got jobs.TranslationJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/status/missing", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Download_RequiresFinishedJob(t *testing.T) {
	srv, queue, _ := newTestServer(t)

	job, _ := queue.Enqueue(jobs.EnqueueRequest{UploadID: "u1"})

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+job.ID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_EditSaveDownloadDelete(t *testing.T) {
	srv, queue, files := newTestServer(t)

	job, _ := queue.Enqueue(jobs.EnqueueRequest{
		UploadID: "u1",
		Files:    []jobs.FileInfo{{Name: "movie.srt", Format: "srt"}},
	})

	// Run the job with an executor that writes a translated output.
	queue.Start(func(_ context.Context, j *jobs.TranslationJob) error {
		path, err := files.WriteOutput(j.ID, "movie.srt", []byte(sampleSRT))
		if err != nil {
			return err
		}
		queue.SetResults(j.ID, []jobs.FileResult{{Name: "movie.srt", OutputPath: path, EntryCount: 2}})
		return nil
	})
	defer queue.Stop()

	require.Eventually(t, func() bool {
		got, ok := queue.Get(job.ID)
		return ok && got.Status == jobs.StatusSuccess
	}, time.Second, 10*time.Millisecond)

	// Edit returns the output content.
	req := httptest.NewRequest(http.MethodGet, "/api/edit/"+job.ID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var edit editResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edit))
	require.Len(t, edit.Files, 1)
	assert.Contains(t, edit.Files[0].Content, "Hello world")

	// Save replaces the content.
	savePayload, _ := json.Marshal(saveRequest{Files: []editFile{{Name: "movie.srt", Content: "edited"}}})
	req = httptest.NewRequest(http.MethodPost, "/api/save/"+job.ID, bytes.NewReader(savePayload))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data, err := files.ReadOutput(job.ID, "movie.srt")
	require.NoError(t, err)
	assert.Equal(t, "edited", string(data))

	// Save rejects files outside the job.
	savePayload, _ = json.Marshal(saveRequest{Files: []editFile{{Name: "other.srt", Content: "x"}}})
	req = httptest.NewRequest(http.MethodPost, "/api/save/"+job.ID, bytes.NewReader(savePayload))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Download streams a zip.
	req = httptest.NewRequest(http.MethodGet, "/api/download/"+job.ID, nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())

	// Delete removes the job and its files.
	req = httptest.NewRequest(http.MethodDelete, "/api/delete/"+job.ID, nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, ok := queue.Get(job.ID)
	assert.False(t, ok)
	_, err = files.ReadOutput(job.ID, "movie.srt")
	assert.Error(t, err)
}

func TestServer_Delete_InProgressConflicts(t *testing.T) {
	srv, queue, _ := newTestServer(t)

	job, _ := queue.Enqueue(jobs.EnqueueRequest{UploadID: "u1"})

	req := httptest.NewRequest(http.MethodDelete, "/api/delete/"+job.ID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_JobStream_SendsSnapshot(t *testing.T) {
	srv, queue, _ := newTestServer(t)
	queue.Enqueue(jobs.EnqueueRequest{UploadID: "u1"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "data: ")
	assert.Contains(t, rec.Body.String(), "u1")
}
