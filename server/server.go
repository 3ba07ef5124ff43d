// Package server exposes an engine.Controller over HTTP.
package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/engine"
	"github.com/hupe1980/assetflow/logging"
	"github.com/hupe1980/assetflow/notify"
)

// DefaultMaxUploadBytes caps multipart uploads.
const DefaultMaxUploadBytes int64 = 32 << 20

// Options configures a Handler.
type Options struct {
	// Notifications, when set, is served from GET /api/notifications.
	Notifications  *notify.Recorder
	MaxUploadBytes int64
	Logger         logging.Logger
}

// Handler serves the assetflow API.
type Handler struct {
	ctrl      *engine.Controller
	notes     *notify.Recorder
	maxUpload int64
	logger    logging.Logger
}

// NewHandler creates a Handler over ctrl.
func NewHandler(ctrl *engine.Controller, optFns ...func(o *Options)) *Handler {
	opts := Options{
		MaxUploadBytes: DefaultMaxUploadBytes,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Handler{
		ctrl:      ctrl,
		notes:     opts.Notifications,
		maxUpload: opts.MaxUploadBytes,
		logger:    opts.Logger,
	}
}

// NewRouter returns a chi router with the standard middleware stack and the
// API routes mounted.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/healthz"))
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Post("/reset", h.Reset)

		r.Post("/messages", h.PostMessage)

		r.Get("/agent-types", h.ListAgentTypes)
		r.Get("/agents", h.ListAgents)
		r.Get("/agents/{id}", h.GetAgent)
		r.Post("/agents/{id}/execute", h.ExecuteAgent)
		r.Delete("/agents/{id}", h.DeleteAgent)

		r.Get("/assets", h.ListAssets)
		r.Post("/assets/load", h.LoadAssets)
		r.Post("/assets/upload", h.UploadFile)
		r.Get("/assets/{id}", h.GetAsset)
		r.Delete("/assets/{id}", h.DeleteAsset)
		r.Post("/assets/{id}/save", h.SaveAsset)
		r.Get("/assets/{id}/download", h.DownloadFile)

		r.Get("/notifications", h.ListNotifications)
	})
}

// StateView is the ordered JSON view of the session.
type StateView struct {
	Metadata core.SessionMetadata `json:"metadata"`
	Messages []core.Message       `json:"messages"`
	Assets   []core.Asset         `json:"assets"`
	Agents   []core.Agent         `json:"agents"`
}

// GetState returns the whole session.
func (h *Handler) GetState(w http.ResponseWriter, _ *http.Request) {
	s := h.ctrl.State()
	JSON(w, http.StatusOK, StateView{
		Metadata: s.Metadata,
		Messages: s.Messages,
		Assets:   s.AssetList(),
		Agents:   s.AgentList(),
	})
}

// Reset discards the session.
func (h *Handler) Reset(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// PostMessage runs one chat turn. Blank text yields 204.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeJSON(r, &req); err != nil {
		Fail(w, err)
		return
	}
	resp, err := h.ctrl.ProcessMessage(r.Context(), req.Text)
	if err != nil {
		Fail(w, err)
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// ListAgentTypes returns the executable agent types.
func (h *Handler) ListAgentTypes(w http.ResponseWriter, _ *http.Request) {
	types := h.ctrl.RegisteredTypes()
	if types == nil {
		types = []core.AgentType{}
	}
	JSON(w, http.StatusOK, types)
}

// ListAgents returns all agents in creation order.
func (h *Handler) ListAgents(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.ctrl.State().AgentList())
}

// GetAgent returns one agent.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := h.ctrl.Store().Agent(id)
	if !ok {
		Fail(w, core.NewNotFound("agent", id))
		return
	}
	JSON(w, http.StatusOK, a)
}

// ExecuteResponse is the body of a finished run. Agent carries the terminal
// state in both the success and the failure case.
type ExecuteResponse struct {
	Result *core.ExecutionResult `json:"result,omitempty"`
	Agent  *core.Agent           `json:"agent,omitempty"`
	Error  string                `json:"error,omitempty"`
	Code   core.Code             `json:"code,omitempty"`
}

// ExecuteAgent runs the agent synchronously.
func (h *Handler) ExecuteAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.ctrl.ExecuteAgent(r.Context(), id)

	var body ExecuteResponse
	if a, ok := h.ctrl.Store().Agent(id); ok {
		body.Agent = &a
	}
	if err != nil {
		body.Error = err.Error()
		body.Code = core.CodeOf(err)
		JSON(w, StatusFor(err), body)
		return
	}
	body.Result = result
	JSON(w, http.StatusOK, body)
}

// DeleteAgent removes an agent. Its outputs are kept.
func (h *Handler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.RemoveAgent(chi.URLParam(r, "id")); err != nil {
		Fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAssets returns all assets, optionally filtered by ?dataType=.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	dataType := core.DataType(strings.ToUpper(r.URL.Query().Get("dataType")))
	assets := h.ctrl.State().AssetList()
	if dataType != "" {
		filtered := assets[:0]
		for _, a := range assets {
			if a.DataType == dataType {
				filtered = append(filtered, a)
			}
		}
		assets = filtered
	}
	JSON(w, http.StatusOK, assets)
}

// GetAsset returns one asset.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := h.ctrl.Store().Asset(id)
	if !ok {
		Fail(w, core.NewNotFound("asset", id))
		return
	}
	JSON(w, http.StatusOK, a)
}

// SaveAsset persists an asset to the repository.
func (h *Handler) SaveAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.ctrl.SaveAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Fail(w, err)
		return
	}
	JSON(w, http.StatusOK, a)
}

// DeleteAsset removes an asset locally and remotely.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.DeleteAsset(r.Context(), chi.URLParam(r, "id")); err != nil {
		Fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadAssets pulls repository assets into the session, optionally filtered
// by ?dataType=.
func (h *Handler) LoadAssets(w http.ResponseWriter, r *http.Request) {
	dataType := core.DataType(strings.ToUpper(r.URL.Query().Get("dataType")))
	loaded, err := h.ctrl.LoadAssets(r.Context(), dataType)
	if err != nil {
		Fail(w, err)
		return
	}
	JSON(w, http.StatusOK, loaded)
}

// UploadFile accepts a multipart form with a "file" part and optional
// "name" and "description" fields.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		Error(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		Error(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		Error(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}

	a, err := h.ctrl.UploadFile(r.Context(), core.FileUpload{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		Fail(w, err)
		return
	}
	JSON(w, http.StatusCreated, a)
}

// DownloadFile streams the binary payload of a persisted asset.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.ctrl.DownloadFile(r.Context(), id)
	if err != nil {
		Fail(w, err)
		return
	}

	name := id
	contentType := "application/octet-stream"
	if a, ok := h.ctrl.Store().Asset(id); ok {
		if ref, ok := a.Content.(core.FileRef); ok {
			if ref.FileName != "" {
				name = ref.FileName
			}
			if ref.ContentType != "" {
				contentType = ref.ContentType
			}
		}
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("download write failed", "asset_id", id, "error", err)
	}
}

// ListNotifications returns buffered notifications. ?drain=true clears the
// buffer.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if h.notes == nil {
		JSON(w, http.StatusOK, []core.Notification{})
		return
	}
	var notes []core.Notification
	if r.URL.Query().Get("drain") == "true" {
		notes = h.notes.Drain()
	} else {
		notes = h.notes.All()
	}
	if notes == nil {
		notes = []core.Notification{}
	}
	JSON(w, http.StatusOK, notes)
}
