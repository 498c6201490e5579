package api

import (
	"net/http"
	"strconv"

	"mixdown/internal/media/ffmpeg"
)

type loudnessParams struct {
	Integrated float64 `validate:"gte=-70,lte=0"`
	TruePeak   float64 `validate:"gte=-9,lte=0"`
	LRA        float64 `validate:"gte=1,lte=50"`
}

// parseTargets reads optional loudness target overrides from the form.
func (s *Server) parseTargets(w http.ResponseWriter, r *http.Request) (ffmpeg.LoudnessTargets, bool) {
	targets := ffmpeg.DefaultLoudnessTargets()
	params := loudnessParams{
		Integrated: targets.IntegratedLUFS,
		TruePeak:   targets.TruePeak,
		LRA:        targets.LoudnessRange,
	}
	if v := r.FormValue("integrated"); v != "" {
		params.Integrated, _ = strconv.ParseFloat(v, 64)
	}
	if v := r.FormValue("true_peak"); v != "" {
		params.TruePeak, _ = strconv.ParseFloat(v, 64)
	}
	if v := r.FormValue("lra"); v != "" {
		params.LRA, _ = strconv.ParseFloat(v, 64)
	}
	if err := s.validate.Struct(params); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid loudness targets: "+err.Error())
		return ffmpeg.LoudnessTargets{}, false
	}
	targets.IntegratedLUFS = params.Integrated
	targets.TruePeak = params.TruePeak
	targets.LoudnessRange = params.LRA
	return targets, true
}

func parseCompression(r *http.Request) ffmpeg.Compression {
	if r.FormValue("compress") != "true" && r.FormValue("compress") != "1" {
		return ffmpeg.Compression{}
	}
	return ffmpeg.Compression{
		Enabled:     true,
		ThresholdDB: -20,
		Ratio:       3,
		AttackMS:    5,
		ReleaseMS:   50,
	}
}

// handleNormalizeStart submits the two-pass normalization as a background
// job, for callers that would rather poll than hold the connection open.
func (s *Server) handleNormalizeStart(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.acceptUpload(w, r)
	if !ok {
		return
	}
	targets, ok := s.parseTargets(w, r)
	if !ok {
		_ = upload.ws.Release()
		return
	}
	id := s.runner.SubmitTimeout("normalize", upload.ws, s.pipelineTimeout(), s.deps.Normalize(upload.inputPath, targets, parseCompression(r)))
	s.writeJSON(w, http.StatusOK, JobCreatedResponse{JobID: id})
}

// handleMeasureLUFS runs the pass-one loudness analysis synchronously and
// returns the measurement.
func (s *Server) handleMeasureLUFS(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.acceptUpload(w, r)
	if !ok {
		return
	}
	defer func() { _ = upload.ws.Release() }()

	targets, ok := s.parseTargets(w, r)
	if !ok {
		return
	}
	measurement, err := s.deps.MeasureLoudness(r.Context(), upload.inputPath, targets)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, MeasurementResponse{
		InputI:       measurement.InputI,
		InputTP:      measurement.InputTP,
		InputLRA:     measurement.InputLRA,
		InputThresh:  measurement.InputThresh,
		TargetOffset: measurement.TargetOffset,
	})
}

// handleNormalize runs the full two-pass loudness normalization on the
// request and streams back the WAV.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.acceptUpload(w, r)
	if !ok {
		return
	}
	defer func() { _ = upload.ws.Release() }()

	targets, ok := s.parseTargets(w, r)
	if !ok {
		return
	}
	output := upload.ws.Path("normalized.wav")
	if _, err := s.deps.NormalizeSync(r.Context(), upload.inputPath, output, targets, parseCompression(r)); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\"normalized.wav\"")
	http.ServeFile(w, r, output)
}
