package api

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mixdown/internal/jobs"
	"mixdown/internal/media/ffmpeg"
	"mixdown/internal/workspace"
)

// uploadRequest is the common shape of a job submission: one audio file,
// saved into a fresh workspace.
type uploadRequest struct {
	ws        *workspace.Workspace
	inputPath string
}

// acceptUpload parses the multipart form, acquires a workspace, and streams
// the "file" part into it. On error the workspace is already released.
func (s *Server) acceptUpload(w http.ResponseWriter, r *http.Request) (*uploadRequest, bool) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.UploadMaxBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "audio file required")
		return nil, false
	}
	defer file.Close()

	ws, err := s.janitor.Acquire("job")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "workspace unavailable: "+err.Error())
		return nil, false
	}
	inputPath, err := ws.SaveUpload(header.Filename, file)
	if err != nil {
		_ = ws.Release()
		s.writeError(w, http.StatusInternalServerError, "store upload: "+err.Error())
		return nil, false
	}
	return &uploadRequest{ws: ws, inputPath: inputPath}, true
}

func (s *Server) pipelineTimeout() time.Duration {
	return time.Duration(s.cfg.Limits.PipelineTimeout) * time.Second
}

type renderParams struct {
	Width  int    `validate:"gte=16,lte=4096"`
	Height int    `validate:"gte=16,lte=4096"`
	FPS    int    `validate:"gte=1,lte=120"`
	Color  string `validate:"omitempty,startswith=0x"`
	BG     string `validate:"omitempty,startswith=0x"`
}

func (s *Server) handleRenderStart(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.acceptUpload(w, r)
	if !ok {
		return
	}

	opts := ffmpeg.DefaultWaveformOptions()
	params := renderParams{Width: opts.Width, Height: opts.Height, FPS: opts.FPS}
	if v := r.FormValue("width"); v != "" {
		params.Width, _ = strconv.Atoi(v)
	}
	if v := r.FormValue("height"); v != "" {
		params.Height, _ = strconv.Atoi(v)
	}
	if v := r.FormValue("fps"); v != "" {
		params.FPS, _ = strconv.Atoi(v)
	}
	params.Color = r.FormValue("color")
	params.BG = r.FormValue("background")
	if err := s.validate.Struct(params); err != nil {
		_ = upload.ws.Release()
		s.writeError(w, http.StatusBadRequest, "invalid render parameters: "+err.Error())
		return
	}
	opts.Width, opts.Height, opts.FPS = params.Width, params.Height, params.FPS
	if params.Color != "" {
		opts.Color = params.Color
	}
	if params.BG != "" {
		opts.Background = params.BG
	}

	timeout := time.Duration(s.cfg.Limits.RenderTimeout) * time.Second
	id := s.runner.SubmitTimeout("render", upload.ws, timeout, s.deps.Waveform(upload.inputPath, opts))
	s.writeJSON(w, http.StatusOK, JobCreatedResponse{JobID: id})
}

func (s *Server) handleStemsStart(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.acceptUpload(w, r)
	if !ok {
		return
	}
	id := s.runner.SubmitTimeout("stems", upload.ws, s.pipelineTimeout(), s.deps.Stems(upload.inputPath))
	s.writeJSON(w, http.StatusOK, JobCreatedResponse{JobID: id})
}

func (s *Server) handleAlignStart(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.acceptUpload(w, r)
	if !ok {
		return
	}
	lyrics := r.FormValue("lyrics")
	if strings.TrimSpace(lyrics) == "" {
		_ = upload.ws.Release()
		s.writeError(w, http.StatusBadRequest, "lyrics text required")
		return
	}
	id := s.runner.SubmitTimeout("lyrics-align", upload.ws, s.pipelineTimeout(), s.deps.AlignLyrics(upload.inputPath, lyrics))
	s.writeJSON(w, http.StatusOK, JobCreatedResponse{JobID: id})
}

func (s *Server) handleExtractStart(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.acceptUpload(w, r)
	if !ok {
		return
	}
	id := s.runner.SubmitTimeout("lyrics-extract", upload.ws, s.pipelineTimeout(), s.deps.ExtractLyrics(upload.inputPath))
	s.writeJSON(w, http.StatusOK, JobCreatedResponse{JobID: id})
}

// handleProgress serves the polling endpoint for one job kind.
func (s *Server) handleProgress(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		record, ok := s.lookupJob(w, r, kind)
		if !ok {
			return
		}
		logs := record.Logs
		if tail := s.cfg.Limits.LogTail; tail > 0 && len(logs) > tail {
			logs = logs[len(logs)-tail:]
		}
		s.writeJSON(w, http.StatusOK, ProgressResponse{
			JobID:    record.ID,
			Status:   string(record.Status),
			Progress: record.Progress,
			Error:    record.Error,
			Logs:     logs,
		})
	}
}

// handleResult serves the completed artifact and schedules cleanup after the
// response is written. Cleanup is idempotent; a retried retrieval that lost
// the race sees "not found".
func (s *Server) handleResult(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		record, ok := s.lookupJob(w, r, kind)
		if !ok {
			return
		}
		if record.Status != jobs.StatusCompleted {
			s.writeError(w, http.StatusBadRequest, "job is not completed: "+string(record.Status))
			return
		}
		if record.ResultRef == "" {
			s.writeError(w, http.StatusInternalServerError, "job completed without a result artifact")
			return
		}

		defer func() {
			s.store.Remove(record.ID)
			s.runner.ReleaseWorkspace(record.ID)
		}()

		w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(record.ResultRef)+"\"")
		http.ServeFile(w, r, record.ResultRef)
	}
}

// lookupJob resolves the job_id query parameter to a record of the given
// kind, writing the structured 404 when absent or mismatched.
func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request, kind string) (jobs.Record, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("job_id"))
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "job_id required")
		return jobs.Record{}, false
	}
	record, ok := s.store.Get(id)
	if !ok || record.Kind != kind {
		s.writeError(w, http.StatusNotFound, "job not found")
		return jobs.Record{}, false
	}
	return record, true
}
