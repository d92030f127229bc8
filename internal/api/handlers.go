package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/veo3-storyboard/internal/imagecodec"
	"github.com/fpang/veo3-storyboard/internal/pipeline"
	"github.com/fpang/veo3-storyboard/internal/session"
	"github.com/fpang/veo3-storyboard/internal/storyboard"
)

// --- Info ---

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Veo3 Prompt Generator API",
		"version": Version,
		"endpoints": map[string]string{
			"/generate-veo3":                        "POST - Generate Veo3 JSON from image and prompt",
			"/api/sessions":                         "POST - Start a session from an image or a generation prompt",
			"/api/sessions/{id}":                    "GET, DELETE - Inspect or discard a session",
			"/api/sessions/{id}/analyze":            "POST - Run scene analysis",
			"/api/sessions/{id}/annotate":           "POST - Draw AI storyboard annotations",
			"/api/sessions/{id}/manual":             "PUT - Upload a manually annotated image",
			"/api/sessions/{id}/finalize":           "POST - Generate the Veo3 spec",
			"/api/sessions/{id}/images/{selection}": "GET - Download original, ai_annotated, manual_annotated or current",
			"/metrics":                              "GET - Prometheus metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"sessions":   s.sessions.Len(),
		"generation": s.orch.HasGenerator(),
	})
}

// --- One-shot ---

// generateResponse is the body of a successful /generate-veo3 call.
type generateResponse struct {
	Status            string              `json:"status"`
	SessionID         string              `json:"session_id"`
	Veo3Prompt        storyboard.Veo3Spec `json:"veo3_prompt"`
	SceneAnalysis     any                 `json:"scene_analysis"`
	AnnotationApplied bool                `json:"annotation_applied"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		httpError(w, http.StatusBadRequest, "expected multipart form with image and prompt")
		return
	}

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		httpError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	data, status, err := readImageField(r, "image")
	if err != nil {
		httpError(w, status, err.Error())
		return
	}

	sess := s.sessions.Create()
	s.trackSessions()

	res, err := s.orch.Run(r.Context(), sess, pipeline.RunRequest{
		IngestRequest: pipeline.IngestRequest{ImageBytes: data},
		UserPrompt:    prompt,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, generateResponse{
		Status:            "success",
		SessionID:         res.SessionID,
		Veo3Prompt:        res.Spec,
		SceneAnalysis:     res.OverviewObject,
		AnnotationApplied: res.AnnotationApplied,
	})
}

// --- Sessions ---

// sessionView is the JSON form of a session snapshot.
type sessionView struct {
	ID           string                     `json:"id"`
	State        session.State              `json:"state"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
	ExpiresIn    string                     `json:"expires_in"`
	Images       []session.Selection        `json:"images"`
	Width        int                        `json:"width,omitempty"`
	Height       int                        `json:"height,omitempty"`
	Source       *imagecodec.SourceMetadata `json:"source,omitempty"`
	Analysis     *storyboard.SceneAnalysis  `json:"analysis,omitempty"`
	OverviewText string                     `json:"overview_text,omitempty"`
	Plan         string                     `json:"plan,omitempty"`
	Spec         map[string]any             `json:"veo3_prompt,omitempty"`
}

func (s *Server) view(sess *session.Session) sessionView {
	snap := sess.Snapshot()
	v := sessionView{
		ID:        snap.ID,
		State:     snap.State,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
		ExpiresIn: s.sessions.TTL().String(),
		Images:    snap.Available(),
		Source:    snap.Source,
		Analysis:  snap.Analysis,
		Plan:      snap.Plan,
		Spec:      snap.Spec,
	}
	if v.Images == nil {
		v.Images = []session.Selection{}
	}
	if snap.Original != nil {
		v.Width = snap.Original.Bounds().Dx()
		v.Height = snap.Original.Bounds().Dy()
	}
	if snap.Analysis != nil {
		v.OverviewText = storyboard.FormatOverview(snap.Analysis.SceneOverview)
	}
	return v
}

// createRequest is the JSON form of POST /api/sessions.
type createRequest struct {
	GeneratePrompt string `json:"generate_prompt"`
	Analyze        bool   `json:"analyze"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	var (
		req     pipeline.IngestRequest
		analyze bool
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json":
		var body createRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.GeneratePrompt = body.GeneratePrompt
		analyze = body.Analyze

	case strings.HasPrefix(mediaType, "multipart/"):
		if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
			httpError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		if len(r.MultipartForm.File["image"]) > 0 {
			data, status, err := readImageField(r, "image")
			if err != nil {
				httpError(w, status, err.Error())
				return
			}
			req.ImageBytes = data
		}
		req.GeneratePrompt = r.FormValue("generate_prompt")
		analyze, _ = strconv.ParseBool(r.FormValue("analyze"))

	case mediaType == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		req.GeneratePrompt = r.PostFormValue("generate_prompt")
		analyze, _ = strconv.ParseBool(r.PostFormValue("analyze"))

	default:
		httpError(w, http.StatusUnsupportedMediaType, "expected multipart form or JSON body")
		return
	}

	sess := s.sessions.Create()
	if err := s.orch.Ingest(r.Context(), sess, req); err != nil {
		s.sessions.Delete(sess.ID())
		respondError(w, r, err)
		return
	}
	s.trackSessions()

	if analyze {
		if _, err := s.orch.Analyze(r.Context(), sess); err != nil {
			// The session keeps its image so analysis can be retried.
			w.Header().Set("Location", "/api/sessions/"+sess.ID())
			respondError(w, r, err)
			return
		}
	}
	respondJSON(w, http.StatusCreated, s.view(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	respondJSON(w, http.StatusOK, s.view(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.sessions.Get(id); !ok {
		respondError(w, r, errSessionNotFound)
		return
	}
	s.sessions.Delete(id)
	s.trackSessions()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if _, err := s.orch.Analyze(r.Context(), sess); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.view(sess))
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if _, err := s.orch.Annotate(r.Context(), sess); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.view(sess))
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	var (
		data   []byte
		status int
		err    error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
			httpError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		data, status, err = readImageField(r, "image")
	case strings.HasPrefix(mediaType, "image/"):
		data, err = io.ReadAll(r.Body)
		status = http.StatusBadRequest
	default:
		httpError(w, http.StatusUnsupportedMediaType, "file must be an image")
		return
	}
	if err != nil {
		httpError(w, status, err.Error())
		return
	}

	img, err := imagecodec.Decode(data)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.orch.SaveManualAnnotation(sess, img); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.view(sess))
}

// finalizeRequest is the body of POST /api/sessions/{id}/finalize.
type finalizeRequest struct {
	Prompt      string `json:"prompt"`
	ImageChoice string `json:"image_choice"`
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var body finalizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		httpError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	sel, err := session.ParseSelection(body.ImageChoice)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	spec, err := s.orch.Finalize(r.Context(), sess, body.Prompt, sel)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"image_choice": sel,
		"veo3_prompt":  spec,
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sel, err := session.ParseSelection(r.PathValue("selection"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	img := sess.Image(sel)
	if img == nil {
		httpError(w, http.StatusNotFound, "session has no image yet")
		return
	}
	data, err := imagecodec.EncodePNG(img)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(data); err != nil {
		log.Debug().Err(err).Msg("Image write aborted")
	}
}

// readImageField reads an uploaded file that must declare an image/*
// content type. On failure it returns the status to answer with.
func readImageField(r *http.Request, field string) ([]byte, int, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("%s file is required", field)
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		return nil, http.StatusBadRequest, errors.New("file must be an image")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, 0, nil
}
