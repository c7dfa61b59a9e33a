package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	flowerrors "github.com/matzehuels/flowsync/pkg/errors"
	"github.com/matzehuels/flowsync/pkg/flow"
	"github.com/matzehuels/flowsync/pkg/layout"
	"github.com/matzehuels/flowsync/pkg/observability"
	"github.com/matzehuels/flowsync/pkg/store"
	enginesync "github.com/matzehuels/flowsync/pkg/sync"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	listen string // bind address; overrides the config file
	file   string // optional flowchart file to load on startup
}

// newServeCmd creates the serve command, which runs the interactive
// preview server. The server holds one sync engine: text edits arrive
// over PUT /api/code, graph edits over the node and edge endpoints, and
// both converge to the same document.
func newServeCmd(configPath *string) *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Run the interactive preview server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.file = args[0]
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if opts.listen != "" {
				cfg.Serve.Listen = opts.listen
			}
			return runServe(cmd.Context(), cfg, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.listen, "listen", "l", "", "bind address (default from config, 127.0.0.1:8735)")
	return cmd
}

func runServe(ctx context.Context, cfg Config, opts *serveOpts) error {
	logger := loggerFromContext(ctx)

	code := ""
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return err
		}
		code = string(data)
	}

	engineOpts := enginesync.Options{Code: code, Logger: logger}
	if cfg.DebounceMs > 0 {
		engineOpts.Debounce = time.Duration(cfg.DebounceMs) * time.Millisecond
	}
	eng, err := enginesync.New(engineOpts)
	if err != nil {
		return err
	}
	defer eng.Destroy()

	drafts, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer drafts.Close()

	srv := &server{engine: eng, drafts: drafts, logger: logger}
	httpServer := &http.Server{
		Addr:              cfg.Serve.Listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		printInfo("preview server listening on %s", cfg.Serve.Listen)
		printNextStep("Open", "http://"+cfg.Serve.Listen+"/api/svg")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// =============================================================================
// Server
// =============================================================================

type server struct {
	engine *enginesync.Engine
	drafts store.Store
	logger *charmlog.Logger
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(hooksMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/code", s.handleGetCode)
		r.Put("/code", s.handlePutCode)
		r.Get("/graph", s.handleGetGraph)
		r.Get("/svg", s.handleGetSVG)

		r.Post("/nodes", s.handleAddNode)
		r.Patch("/nodes/{id}", s.handleUpdateNode)
		r.Delete("/nodes/{id}", s.handleRemoveNode)
		r.Put("/nodes/{id}/position", s.handleNodePosition)
		r.Post("/nodes/move", s.handleMoveNodes)

		r.Post("/edges", s.handleConnect)
		r.Patch("/edges/{id}", s.handleUpdateEdge)
		r.Delete("/edges/{id}", s.handleRemoveEdge)

		r.Post("/undo", s.handleUndo)
		r.Post("/redo", s.handleRedo)

		r.Post("/drafts", s.handleSaveDraft)
		r.Get("/drafts/{id}", s.handleLoadDraft)
		r.Delete("/drafts/{id}", s.handleDeleteDraft)
	})
	return r
}

// hooksMiddleware reports requests and responses through the global
// observability registry.
func hooksMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		observability.HTTP().OnRequest(ctx, r.Method, r.URL.Path)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		observability.HTTP().OnResponse(ctx, r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// =============================================================================
// Code Handlers
// =============================================================================

func (s *server) handleGetCode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"code": s.engine.Code()})
}

func (s *server) handlePutCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, flowerrors.Wrap(flowerrors.ErrCodeInvalidFormat, err, "decoding request body"))
		return
	}
	if err := flowerrors.ValidateDiagramText(req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.engine.UpdateFromCode(req.Code); err != nil {
		writeError(w, r, flowerrors.Wrap(flowerrors.ErrCodeParse, err, "parsing diagram"))
		return
	}
	m := s.engine.Model()
	s.logger.Debug("code updated", "nodes", m.NodeCount(), "edges", m.EdgeCount())
	writeJSON(w, http.StatusOK, map[string]string{"code": s.engine.Code()})
}

func (s *server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	m := s.engine.Model()
	writeJSON(w, http.StatusOK, map[string]any{
		"direction": m.Direction(),
		"nodes":     m.Nodes(),
		"edges":     m.Edges(),
		"subgraphs": m.SubGraphs(),
	})
}

func (s *server) handleGetSVG(w http.ResponseWriter, r *http.Request) {
	svg, err := layout.RenderSVG(r.Context(), s.engine.Model())
	if err != nil {
		writeError(w, r, flowerrors.Wrap(flowerrors.ErrCodeInternal, err, "rendering diagram"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

// =============================================================================
// Node Handlers
// =============================================================================

func (s *server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    string `json:"id"`
		Text  string `json:"text"`
		Shape string `json:"shape"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, flowerrors.Wrap(flowerrors.ErrCodeInvalidFormat, err, "decoding request body"))
		return
	}
	if err := flowerrors.ValidateNodeID(req.ID); err != nil {
		writeError(w, r, err)
		return
	}

	node := flow.Node{ID: req.ID, Text: req.Text}
	if req.Shape != "" {
		shape, ok := flow.ParseShape(req.Shape)
		if !ok {
			writeError(w, r, flowerrors.New(flowerrors.ErrCodeInvalidInput, "unknown shape %q", req.Shape))
			return
		}
		node.Shape = shape
	}

	if err := s.engine.AddNode(node); err != nil {
		writeError(w, r, flowerrors.Wrap(flowerrors.ErrCodeDuplicateID, err, "adding node %s", req.ID))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (s *server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Text  *string `json:"text"`
		Shape *string `json:"shape"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, flowerrors.Wrap(flowerrors.ErrCodeInvalidFormat, err, "decoding request body"))
		return
	}

	patch := flow.NodePatch{Text: req.Text}
	if req.Shape != nil {
		shape, ok := flow.ParseShape(*req.Shape)
		if !ok {
			writeError(w, r, flowerrors.New(flowerrors.ErrCodeInvalidInput, "unknown shape %q", *req.Shape))
			return
		}
		patch.Shape = &shape
	}

	if !s.engine.UpdateNode(id, patch) {
		writeError(w, r, flowerrors.New(flowerrors.ErrCodeNotFound, "node %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.engine.RemoveNode(id) {
		writeError(w, r, flowerrors.New(flowerrors.ErrCodeNotFound, "node %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleNodePosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, flowerrors.Wrap(flowerrors.ErrCodeInvalidFormat, err, "decoding request body"))
		return
	}
	s.engine.UpdateNodePosition(id, req.X, req.Y)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleMoveNodes(w http.ResponseWriter, r *http.Request) {
	var req map[string]flow.Point
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, flowerrors.Wrap(flowerrors.ErrCodeInvalidFormat, err, "decoding request body"))
		return
	}
	s.engine.MoveNodes(req)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Edge Handlers
// =============================================================================

func (s *server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, flowerrors.Wrap(flowerrors.ErrCodeInvalidFormat, err, "decoding request body"))
		return
	}

	id, ok := s.engine.ConnectNodes(req.Source, req.Target)
	if !ok {
		// The engine refuses self connections, duplicates and missing
		// endpoints silently; distinguish for the API response.
		switch {
		case req.Source == req.Target:
			writeError(w, r, flowerrors.New(flowerrors.ErrCodeSelfConnection, "cannot connect %s to itself", req.Source))
		case !s.engine.Model().HasNode(req.Source) || !s.engine.Model().HasNode(req.Target):
			writeError(w, r, flowerrors.New(flowerrors.ErrCodeDanglingReference, "both endpoints must exist"))
		default:
			writeError(w, r, flowerrors.New(flowerrors.ErrCodeDuplicateEdge, "%s and %s are already connected", req.Source, req.Target))
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *server) handleUpdateEdge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Text *string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, flowerrors.Wrap(flowerrors.ErrCodeInvalidFormat, err, "decoding request body"))
		return
	}
	if !s.engine.UpdateEdge(id, flow.EdgePatch{Text: req.Text}) {
		writeError(w, r, flowerrors.New(flowerrors.ErrCodeNotFound, "edge %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *server) handleRemoveEdge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.engine.RemoveEdge(id) {
		writeError(w, r, flowerrors.New(flowerrors.ErrCodeNotFound, "edge %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// History Handlers
// =============================================================================

func (s *server) handleUndo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"undone": s.engine.Undo(), "code": s.engine.Code()})
}

func (s *server) handleRedo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"redone": s.engine.Redo(), "code": s.engine.Code()})
}

// =============================================================================
// Draft Handlers
// =============================================================================

func (s *server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	draft := store.NewDraft(s.engine.Code(), s.engine.ExportPositions())
	if err := store.SaveDraft(r.Context(), s.drafts, draft); err != nil {
		writeError(w, r, err)
		return
	}
	s.logger.Debug("draft saved", "id", draft.ID, "backend", store.BackendName(s.drafts))
	writeJSON(w, http.StatusCreated, map[string]string{"id": draft.ID})
}

func (s *server) handleLoadDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := store.LoadDraft(r.Context(), s.drafts, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.engine.UpdateFromCode(draft.Code); err != nil {
		writeError(w, r, flowerrors.Wrap(flowerrors.ErrCodeParse, err, "parsing draft %s", draft.ID))
		return
	}
	s.engine.ImportPositions(draft.Positions)
	writeJSON(w, http.StatusOK, map[string]string{"id": draft.ID, "code": draft.Code})
}

func (s *server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := store.DeleteDraft(r.Context(), s.drafts, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	writeJSON(w, flowerrors.HTTPStatus(err), map[string]string{
		"code":  string(flowerrors.GetCode(err)),
		"error": flowerrors.UserMessage(err),
	})
}
