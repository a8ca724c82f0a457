package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ochse/webwatch/internal/metrics"
	"github.com/ochse/webwatch/internal/monitor"
	"github.com/ochse/webwatch/internal/worker"
)

// BatchRunner triggers one on-demand batch pass; satisfied by *worker.Runner.
type BatchRunner interface {
	RunOnce(ctx context.Context, trigger string) (worker.Summary, error)
}

// Router provides the embeddable HTTP surface:
//
//	GET    {basePath}/monitors?owner_key=   list records for an owner
//	POST   {basePath}/monitors              create a monitor
//	DELETE {basePath}/monitors/:id?owner_key=  delete if owned, else 404
//	POST   {basePath}/worker/run?secret=    trigger one batch
//	GET    {basePath}/healthz               liveness + store ping
//	GET    {basePath}/metrics               Prometheus text, when enabled
type Router struct {
	store        monitor.Store
	runner       BatchRunner
	secret       string
	basePath     string
	serveMetrics bool
	logger       *slog.Logger
}

// Option configures the Router.
type Option func(*Router)

// WithMetrics exposes GET /metrics.
func WithMetrics() Option {
	return func(r *Router) { r.serveMetrics = true }
}

// WithLogger sets the request-failure logger.
func WithLogger(lg *slog.Logger) Option {
	return func(r *Router) { r.logger = lg }
}

// NewRouter constructs a Router. secret may be empty, in which case the
// on-demand trigger is uniformly rejected with 500 (nothing to compare
// against).
func NewRouter(store monitor.Store, runner BatchRunner, secret, basePath string, opts ...Option) *Router {
	r := &Router{
		store:    store,
		runner:   runner,
		secret:   secret,
		basePath: sanitizeBase(basePath),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/monitors", r.handleList)
	group.POST("/monitors", r.handleCreate)
	group.DELETE("/monitors/:id", r.handleDelete)
	group.POST("/worker/run", r.handleRun)
	group.GET("/healthz", r.handleHealth)
	if r.serveMetrics {
		group.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr string, r *Router) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type listResp struct {
	Count int           `json:"count"`
	Data  []monitorJSON `json:"data"`
}

type monitorJSON struct {
	ID            int64   `json:"id"`
	URL           string  `json:"url"`
	Selector      string  `json:"css_selector"`
	OwnerEmail    string  `json:"owner_email"`
	LastContent   *string `json:"last_content"`
	LastCheckedAt *string `json:"last_checked_at"`
}

func toJSON(rec monitor.Record) monitorJSON {
	m := monitorJSON{
		ID:         rec.ID,
		URL:        rec.URL,
		Selector:   rec.Selector,
		OwnerEmail: rec.OwnerEmail,
	}
	if rec.LastContent.Valid {
		s := rec.LastContent.String
		m.LastContent = &s
	}
	if rec.LastCheckedAt.Valid {
		s := rec.LastCheckedAt.Time.UTC().Format(time.RFC3339)
		m.LastCheckedAt = &s
	}
	return m
}

func (r *Router) handleList(c *gin.Context) {
	key := c.Query("owner_key")
	if key == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "owner_key query param required"})
		return
	}
	recs, err := r.store.ListByOwner(c.Request.Context(), key)
	if err != nil {
		r.logger.Error("list monitors failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResp{Error: "store failure"})
		return
	}
	out := listResp{Count: len(recs), Data: make([]monitorJSON, 0, len(recs))}
	for _, rec := range recs {
		out.Data = append(out.Data, toJSON(rec))
	}
	c.JSON(http.StatusOK, out)
}

type createReq struct {
	URL        string `json:"url"`
	Selector   string `json:"css_selector"`
	OwnerEmail string `json:"owner_email"`
	OwnerKey   string `json:"owner_key"`
}

func (r *Router) handleCreate(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.URL == "" || req.Selector == "" || req.OwnerEmail == "" || req.OwnerKey == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "url, css_selector, owner_email and owner_key are required"})
		return
	}
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "url must be absolute http(s)"})
		return
	}
	id, err := r.store.Insert(c.Request.Context(), monitor.Record{
		URL:        req.URL,
		Selector:   req.Selector,
		OwnerEmail: req.OwnerEmail,
		OwnerKey:   req.OwnerKey,
	})
	if err != nil {
		r.logger.Error("create monitor failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResp{Error: "store failure"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "monitor created", "id": id})
}

func (r *Router) handleDelete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid monitor id"})
		return
	}
	key := c.Query("owner_key")
	if key == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "owner_key query param required"})
		return
	}
	ok, err := r.store.Delete(c.Request.Context(), id, key)
	if err != nil {
		r.logger.Error("delete monitor failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, errorResp{Error: "store failure"})
		return
	}
	if !ok {
		// Mismatched key and nonexistent id are deliberately the same answer.
		c.JSON(http.StatusNotFound, errorResp{Error: "monitor not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "monitor deleted", "id": id})
}

func (r *Router) handleRun(c *gin.Context) {
	if r.secret == "" {
		c.JSON(http.StatusInternalServerError, errorResp{Error: "worker secret not configured"})
		return
	}
	if c.Query("secret") != r.secret {
		c.JSON(http.StatusForbidden, errorResp{Error: "invalid secret"})
		return
	}
	sum, err := r.runner.RunOnce(c.Request.Context(), "manual")
	if err != nil {
		if errors.Is(err, worker.ErrBatchInProgress) {
			c.JSON(http.StatusConflict, errorResp{Error: "a batch is already running"})
			return
		}
		r.logger.Error("manual batch failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "batch completed",
		"checked":   sum.Checked,
		"snapshots": sum.Snapshots,
		"changed":   sum.Changed,
		"unchanged": sum.Unchanged,
		"failed":    sum.Failed,
	})
}

func (r *Router) handleHealth(c *gin.Context) {
	if p, ok := r.store.(interface{ Ping(ctx context.Context) error }); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, errorResp{Error: "store unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
