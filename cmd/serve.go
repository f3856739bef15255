package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"adtraffic/internal/bootstrap"
	"adtraffic/internal/bootstrap/logging"
	domaintrafficking "adtraffic/internal/domain/trafficking"
	"adtraffic/internal/errs"
	"adtraffic/internal/ports"
	"adtraffic/internal/usecase/trafficking"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline HTTP API and optionally run batches on an interval",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := cmd.Context()

		addr, _ := cmd.Flags().GetString("addr")
		interval, _ := cmd.Flags().GetDuration("interval")
		if strings.TrimSpace(addr) == "" {
			addr = app.Config.Server.Addr
		}
		if interval <= 0 {
			interval = app.Config.Server.RunInterval
		}

		defaults := trafficking.RunInput{
			Parallel:    app.Config.Pipeline.Parallel,
			HealthCheck: app.Config.Pipeline.HealthCheck,
		}
		server := &http.Server{
			Addr:              addr,
			Handler:           newAPIHandler(ctx, app.Pipeline, app.Browser, defaults),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logging.Info(ctx, "api server started", slog.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errs.Wrap(err, "serve api")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
		if interval > 0 {
			g.Go(func() error {
				runScheduled(gctx, app.Pipeline, defaults, interval)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			logging.Error(ctx, "api server failed", slog.Any("err", errs.Loggable(err)))
			return err
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (empty uses server.addr)")
	serveCmd.Flags().Duration("interval", 0, "Run a batch on this interval (0 uses server.run_interval, which may disable it)")
}

// pipelineAPI is the part of the trafficking service the HTTP API drives.
type pipelineAPI interface {
	RunBatch(ctx context.Context, input trafficking.RunInput) (trafficking.BatchResult, error)
	CheckSLA(ctx context.Context) (trafficking.SLAResult, error)
	LastRun(ctx context.Context) (trafficking.RunSummary, bool, error)
}

// runScheduled runs one batch per tick until ctx ends. Overlapping runs are
// impossible because the next tick is only read after the batch returns.
func runScheduled(ctx context.Context, svc pipelineAPI, input trafficking.RunInput, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Info(ctx, "scheduled runs enabled", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := svc.RunBatch(ctx, input)
			if errors.Is(err, trafficking.ErrRunInProgress) {
				logging.Info(ctx, "scheduled run skipped, a run is in progress")
				continue
			}
			if err != nil {
				logging.Warn(ctx, "scheduled run failed", slog.Any("err", errs.Loggable(err)))
				continue
			}
			logging.Info(ctx, "scheduled run finished",
				slog.String("run_id", batch.RunID),
				slog.Int("tickets", len(batch.Tickets)),
			)
		}
	}
}

type apiHandler struct {
	// base carries the process logger into request contexts.
	base     context.Context
	svc      pipelineAPI
	browser  ports.RecordBrowser
	defaults trafficking.RunInput
}

type runRequest struct {
	Parallel    *int  `json:"parallel"`
	HealthCheck *bool `json:"health_check"`
}

type slaBreachResponse struct {
	TicketID string    `json:"ticket_id"`
	Assignee string    `json:"assignee"`
	Stage    string    `json:"stage"`
	Deadline time.Time `json:"deadline"`
	Overdue  string    `json:"overdue"`
}

type slaResponse struct {
	Checked        int                 `json:"checked"`
	Breaches       []slaBreachResponse `json:"breaches"`
	AlertDelivered bool                `json:"alert_delivered"`
	AlertError     string              `json:"alert_error,omitempty"`
}

type ticketResponse struct {
	ID          string `json:"id"`
	CampaignID  string `json:"campaign_id"`
	RequestType string `json:"request_type"`
	Stage       string `json:"stage"`
	Assignee    string `json:"assignee,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type qaCheckResponse struct {
	CheckName string `json:"check_name"`
	PayloadID string `json:"payload_id,omitempty"`
	Platform  string `json:"platform"`
	Geo       string `json:"geo"`
	Result    string `json:"result"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"created_at,omitempty"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
}

func newAPIHandler(base context.Context, svc pipelineAPI, browser ports.RecordBrowser, defaults trafficking.RunInput) http.Handler {
	h := &apiHandler{base: base, svc: svc, browser: browser, defaults: defaults}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.withLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", h.handleRun)
		r.Get("/runs/last", h.handleLastRun)
		r.Post("/sla-checks", h.handleSLA)
		r.Get("/tickets", h.handleTickets)
		r.Get("/tickets/{id}/qa-checks", h.handleQAChecks)
	})
	return r
}

func (h *apiHandler) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithLogger(r.Context(), logging.Logger(h.base))
		ctx = logging.WithAttrs(ctx,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *apiHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	input := h.defaults
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "read request body failed")
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		var req runRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.Parallel != nil {
			if *req.Parallel < 1 {
				writeAPIError(w, http.StatusBadRequest, "parallel must be >= 1")
				return
			}
			input.Parallel = *req.Parallel
		}
		if req.HealthCheck != nil {
			input.HealthCheck = *req.HealthCheck
		}
	}

	batch, err := h.svc.RunBatch(r.Context(), input)
	if errors.Is(err, trafficking.ErrRunInProgress) {
		writeAPIError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		logging.Error(r.Context(), "run batch failed", slog.Any("err", errs.Loggable(err)))
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, batch.Summary())
}

func (h *apiHandler) handleLastRun(w http.ResponseWriter, r *http.Request) {
	sum, found, err := h.svc.LastRun(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeAPIError(w, http.StatusNotFound, "no run recorded yet")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *apiHandler) handleSLA(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CheckSLA(r.Context())
	if err != nil {
		logging.Error(r.Context(), "sla check failed", slog.Any("err", errs.Loggable(err)))
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := slaResponse{
		Checked:        res.Checked,
		Breaches:       make([]slaBreachResponse, 0, len(res.Breaches)),
		AlertDelivered: res.Alert.Delivered,
	}
	if res.Alert.Err != nil {
		out.AlertError = res.Alert.Err.Error()
	}
	for _, b := range res.Breaches {
		out.Breaches = append(out.Breaches, slaBreachResponse{
			TicketID: b.Ticket.ID,
			Assignee: b.Ticket.Assignee,
			Stage:    string(b.Ticket.Stage),
			Deadline: b.Deadline.UTC(),
			Overdue:  b.Overdue.Round(time.Minute).String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *apiHandler) handleTickets(w http.ResponseWriter, r *http.Request) {
	if h.browser == nil {
		writeAPIError(w, http.StatusServiceUnavailable, "record browser is not configured")
		return
	}

	filter := ports.TicketFilter{Assignee: strings.TrimSpace(r.URL.Query().Get("assignee"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("stage")); raw != "" {
		stage, err := domaintrafficking.ParseStage(raw)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Stage = stage
	}

	tickets, err := h.browser.ListTickets(r.Context(), filter)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, ticketResponse{
			ID:          t.ID,
			CampaignID:  t.CampaignID,
			RequestType: t.RequestType.String(),
			Stage:       string(t.Stage),
			Assignee:    t.Assignee,
			Notes:       t.Notes,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *apiHandler) handleQAChecks(w http.ResponseWriter, r *http.Request) {
	if h.browser == nil {
		writeAPIError(w, http.StatusServiceUnavailable, "record browser is not configured")
		return
	}

	checks, err := h.browser.ListQAChecks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]qaCheckResponse, 0, len(checks))
	for _, c := range checks {
		out = append(out, qaCheckResponse{
			CheckName: c.CheckName,
			PayloadID: c.PayloadID,
			Platform:  c.Platform,
			Geo:       c.Geo,
			Result:    c.Verdict,
			Detail:    c.Detail,
			CreatedAt: c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiErrorResponse{Error: message})
}
