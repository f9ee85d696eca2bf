package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/ValerySidorin/hermes/pkg/fetcher"
	"github.com/ValerySidorin/hermes/pkg/job"
	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// Prober resolves source metadata for validation requests.
type Prober interface {
	Probe(ctx context.Context, url string) (*fetcher.Metadata, error)
}

// Enqueuer hands accepted jobs to the download runner.
type Enqueuer interface {
	Enqueue(j *job.Job, opts fetcher.Options) error
	Cancel(j *job.Job)
}

// API translates HTTP requests into registry and runner calls. Creating
// a download returns immediately; clients poll the status route until
// the job is terminal and then fetch the artifact from /downloads.
type API struct {
	registry  *job.Registry
	prober    Prober
	enqueuer  Enqueuer
	outputDir string
	log       gklog.Logger
}

func New(registry *job.Registry, prober Prober, enqueuer Enqueuer, outputDir string, log gklog.Logger) *API {
	return &API{
		registry:  registry,
		prober:    prober,
		enqueuer:  enqueuer,
		outputDir: outputDir,
		log:       gklog.With(log, "service", "api"),
	}
}

func (a *API) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/validate", a.handleValidate).Methods(http.MethodPost)
	r.HandleFunc("/api/download", a.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/download/{id}", a.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/download/{id}", a.handleCancel).Methods(http.MethodDelete)
	r.PathPrefix("/downloads/").Handler(
		http.StripPrefix("/downloads/", http.FileServer(http.Dir(a.outputDir))))
}

type validateRequest struct {
	URL string `json:"url"`
}

type validateResponse struct {
	Valid    bool   `json:"valid"`
	Platform string `json:"platform,omitempty"`
	Title    string `json:"title,omitempty"`
	Error    string `json:"error,omitempty"`
}

type createRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	req := validateRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, validateResponse{Valid: false, Error: "URL is required"})
		return
	}

	// Syntax failures never reach the fetcher.
	if !isAbsoluteURL(req.URL) {
		writeJSON(w, http.StatusBadRequest, validateResponse{Valid: false, Error: "Invalid URL format"})
		return
	}

	meta, err := a.prober.Probe(r.Context(), req.URL)
	if err != nil {
		level.Debug(a.log).Log("msg", "validation probe failed", "url", req.URL, "err", err.Error())
		writeJSON(w, http.StatusBadRequest, validateResponse{Valid: false, Error: "URL not supported"})
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Valid:    true,
		Platform: fetcher.PlatformFromExtractor(meta.Extractor),
		Title:    meta.Title,
	})
}

func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	req := createRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL is required"})
		return
	}

	j := a.registry.Create(req.URL)
	level.Info(a.log).Log("msg", "download requested", "job", j.ID(), "url", req.URL, "format", req.Format, "quality", req.Quality)

	// The response never waits on the download itself.
	if err := a.enqueuer.Enqueue(j, fetcher.Options{Format: req.Format, Quality: req.Quality}); err != nil {
		level.Error(a.log).Log("msg", "enqueue download", "job", j.ID(), "err", err.Error())
		j.Fail(err.Error())
	}

	writeJSON(w, http.StatusCreated, j.Snapshot())
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	j, err := a.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Download not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, j.Snapshot())
}

func (a *API) handleCancel(w http.ResponseWriter, r *http.Request) {
	j, err := a.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Download not found"})
		return
	}

	a.enqueuer.Cancel(j)
	writeJSON(w, http.StatusOK, j.Snapshot())
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
