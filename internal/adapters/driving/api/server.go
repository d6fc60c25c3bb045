// Package api exposes the library over HTTP. Handlers stay thin:
// decode, call the service, encode.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driving"
)

// VideoReader is the read surface the API needs beyond search.
// driven.VideoStore satisfies it.
type VideoReader interface {
	Get(ctx context.Context, id int64) (*domain.Video, error)
	List(ctx context.Context) ([]domain.Video, error)
}

// Server routes HTTP requests to the search service and task queue.
type Server struct {
	search driving.SearchService
	tasks  driving.TaskQueue
	videos VideoReader
	router *mux.Router
	log    zerolog.Logger
}

// NewServer creates the HTTP server.
func NewServer(search driving.SearchService, tasks driving.TaskQueue, videos VideoReader, log zerolog.Logger) *Server {
	s := &Server{
		search: search,
		tasks:  tasks,
		videos: videos,
		router: mux.NewRouter(),
		log:    log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/videos", s.handleListVideos).Methods(http.MethodGet)
	s.router.HandleFunc("/videos/search", s.handleSearch).Methods(http.MethodGet)
	s.router.HandleFunc("/videos/{id:-?[0-9]+}", s.handleGetVideo).Methods(http.MethodGet)
	s.router.HandleFunc("/videos/{id:-?[0-9]+}/similar", s.handleSimilar).Methods(http.MethodGet)
	s.router.HandleFunc("/videos/{id:-?[0-9]+}/stream.mp4", s.handleStream).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	s.router.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost)
	s.router.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	s.router.HandleFunc("/tasks/{id}", s.handleGetTask).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// videoResponse is the wire shape of one video.
type videoResponse struct {
	ID               int64                    `json:"id"`
	Path             string                   `json:"path"`
	SearchPath       string                   `json:"search_path"`
	Filename         string                   `json:"filename"`
	Size             int64                    `json:"size"`
	Duration         float64                  `json:"duration"`
	Codec            string                   `json:"codec,omitempty"`
	Width            int                      `json:"width,omitempty"`
	Height           int                      `json:"height,omitempty"`
	PreviewPath      string                   `json:"preview_path,omitempty"`
	FilenameMetadata *domain.FilenameMetadata `json:"filename_metadata,omitempty"`
	TorrentTags      []string                 `json:"torrent_tags,omitempty"`
	VisualTags       []string                 `json:"visual_tags,omitempty"`
	Thumbnails       []string                 `json:"thumbnails,omitempty"`
	Description      string                   `json:"description,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
}

func toVideoResponse(v *domain.Video) videoResponse {
	thumbs := make([]string, 0, len(v.Thumbnails))
	for _, t := range v.Thumbnails {
		thumbs = append(thumbs, t.Path)
	}
	return videoResponse{
		ID:               v.ID,
		Path:             v.Path,
		SearchPath:       v.SearchPath,
		Filename:         v.Filename,
		Size:             v.Size,
		Duration:         v.Duration,
		Codec:            v.Codec,
		Width:            v.Width,
		Height:           v.Height,
		PreviewPath:      v.PreviewPath,
		FilenameMetadata: v.FilenameMetadata,
		TorrentTags:      v.TorrentTags,
		VisualTags:       v.VisualTags(),
		Thumbnails:       thumbs,
		Description:      v.Description,
		CreatedAt:        v.CreatedAt,
	}
}

func toVideoResponses(videos []domain.Video) []videoResponse {
	out := make([]videoResponse, len(videos))
	for i := range videos {
		out[i] = toVideoResponse(&videos[i])
	}
	return out
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.videos.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toVideoResponses(videos))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 0)
	rerank := queryBool(r, "rerank")

	videos, err := s.search.Search(r.Context(), q, limit, rerank)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toVideoResponses(videos))
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	video, err := s.videos.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toVideoResponse(video))
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit := queryInt(r, "limit", 0)

	videos, err := s.search.SimilarTo(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toVideoResponses(videos))
}

// handleStream serves the video file itself. http.ServeContent handles
// Range requests, which players rely on for seeking.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	video, err := s.videos.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	f, err := os.Open(video.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.writeError(w, domain.ErrNotFound)
			return
		}
		s.writeError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeContent(w, r, video.Filename, info.ModTime(), f)
}

// scanRequest optionally narrows a scan to specific folders.
type scanRequest struct {
	Folders []string `json:"folders"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, domain.ErrInvalidInput)
			return
		}
	}

	payload := ""
	if len(req.Folders) > 0 {
		data, err := json.Marshal(req.Folders)
		if err != nil {
			s.writeError(w, err)
			return
		}
		payload = string(data)
	}

	task, err := s.tasks.Enqueue(r.Context(), domain.TaskScan, payload)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, task)
}

// taskRequest creates an arbitrary task.
type taskRequest struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.ErrInvalidInput)
		return
	}

	task, err := s.tasks.Enqueue(r.Context(), domain.TaskKind(req.Kind), req.Payload)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	tasks, err := s.tasks.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	task, err := s.tasks.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

// errorResponse is the wire shape of every error.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrQuerySyntax),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownTaskKind):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInference),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrRerankerUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidInput
	}
	return id, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	switch r.URL.Query().Get(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}
