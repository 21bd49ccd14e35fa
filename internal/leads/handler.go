package leads

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/milehighpros/lead-intake/internal/observability/metrics"
	"github.com/milehighpros/lead-intake/pkg/logging"
)

var leadsTracer = otel.Tracer("denverpros.internal.leads")

const (
	defaultStoreTimeout = 10 * time.Second
	maxBodyBytes        = 64 << 10

	msgRateLimited      = "Too many requests. Please try again later."
	msgInvalidBody      = "Invalid request body"
	msgStoreFailed      = "Failed to submit your request. Please try again later."
	msgUnexpected       = "An unexpected error occurred. Please try again later."
	msgMethodNotAllowed = "Method not allowed"
	msgAccepted         = "Thank you! We'll connect you with qualified contractors within 24 hours."
)

// Limiter decides whether a client address may submit right now.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RetryAdvisor is implemented by limiters that know when a blocked key's
// window resets.
type RetryAdvisor interface {
	RetryAfter(ctx context.Context, key string) time.Duration
}

// Notifier sends the best-effort emails for a stored lead. It must not
// report failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, lead *Lead)
}

// HandlerConfig wires the intake handler.
type HandlerConfig struct {
	Repo     Repository
	Limiter  Limiter
	Notifier Notifier
	Metrics  *metrics.LeadMetrics
	Logger   *logging.Logger

	// StoreTimeout bounds the store write. Defaults to 10s.
	StoreTimeout time.Duration
	// RetryAfter is advertised on 429 responses when positive and the
	// limiter cannot report the time left in the client's window.
	RetryAfter time.Duration
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo         Repository
	limiter      Limiter
	notifier     Notifier
	metrics      *metrics.LeadMetrics
	logger       *logging.Logger
	storeTimeout time.Duration
	retryAfter   time.Duration
}

// NewHandler creates a new leads handler
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Repo == nil {
		panic("leads: repository required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Handler{
		repo:         cfg.Repo,
		limiter:      cfg.Limiter,
		notifier:     cfg.Notifier,
		metrics:      cfg.Metrics,
		logger:       logger,
		storeTimeout: timeout,
		retryAfter:   cfg.RetryAfter,
	}
}

// CreateLeadResponse is returned when a lead has been stored.
type CreateLeadResponse struct {
	Success   bool      `json:"success"`
	LeadID    string    `json:"leadId"`
	CreatedAt time.Time `json:"createdAt"`
	Message   string    `json:"message"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateLead handles POST /api/leads: rate check, validation, store write,
// then notifications. Only the store write may fail the request after
// validation; notification problems are logged by the notifier.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, r)
		return
	}

	ctx, span := leadsTracer.Start(r.Context(), "leads.create", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("lead intake panicked", "panic", rec, "stack", string(debug.Stack()))
			span.SetStatus(codes.Error, "panic")
			h.metrics.ObserveSubmission(metrics.OutcomeUnexpected)
			writeError(w, http.StatusInternalServerError, msgUnexpected)
		}
	}()

	meta := MetadataFromRequest(r)
	span.SetAttributes(attribute.String("lead.client_ip", meta.IP))

	if h.limiter != nil && !h.limiter.Allow(ctx, meta.IP) {
		h.logger.Warn("lead submission rate limited", "ip", meta.IP)
		span.SetAttributes(attribute.String("lead.outcome", metrics.OutcomeRateLimited))
		h.metrics.ObserveSubmission(metrics.OutcomeRateLimited)
		if wait := h.retryWait(ctx, meta.IP); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		writeError(w, http.StatusTooManyRequests, msgRateLimited)
		return
	}

	var sub Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&sub); err != nil {
		h.logger.Warn("failed to decode lead submission", "error", err, "ip", meta.IP)
		h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := sub.Validate(); err != nil {
		h.rejectInvalid(w, span, err, meta)
		return
	}

	storeCtx, cancel := context.WithTimeout(ctx, h.storeTimeout)
	start := time.Now()
	lead, err := h.repo.Create(storeCtx, &sub, meta)
	cancel()
	h.metrics.ObserveStoreLatency(err == nil, time.Since(start).Seconds())
	if err != nil {
		if _, ok := AsValidationError(err); ok {
			h.rejectInvalid(w, span, err, meta)
			return
		}
		h.logger.Error("failed to store lead", "error", err, "ip", meta.IP,
			"not_configured", errors.Is(err, ErrStoreNotConfigured))
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		h.metrics.ObserveSubmission(metrics.OutcomeStoreFailed)
		writeError(w, http.StatusInternalServerError, msgStoreFailed)
		return
	}

	span.SetAttributes(attribute.String("lead.id", lead.ID))
	h.logger.Info("lead created", "id", lead.ID, "project_type", lead.ProjectType, "zip_code", lead.ZipCode)

	if h.notifier != nil {
		// The lead is durable; a client disconnect must not abort the emails.
		h.notifier.Notify(context.WithoutCancel(ctx), lead)
	}

	h.metrics.ObserveSubmission(metrics.OutcomeAccepted)
	writeJSON(w, http.StatusOK, CreateLeadResponse{
		Success:   true,
		LeadID:    lead.ID,
		CreatedAt: lead.CreatedAt,
		Message:   msgAccepted,
	})
}

func (h *Handler) retryWait(ctx context.Context, ip string) time.Duration {
	if advisor, ok := h.limiter.(RetryAdvisor); ok {
		if wait := advisor.RetryAfter(ctx, ip); wait > 0 {
			return wait
		}
	}
	return h.retryAfter
}

func (h *Handler) rejectInvalid(w http.ResponseWriter, span trace.Span, err error, meta Metadata) {
	verr, _ := AsValidationError(err)
	field := ""
	if verr != nil {
		field = verr.Field
	}
	h.logger.Info("lead submission rejected", "field", field, "reason", err.Error(), "ip", meta.IP)
	span.SetAttributes(attribute.String("lead.invalid_field", field))
	h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
	writeError(w, http.StatusBadRequest, err.Error())
}

// GetLead handles GET /admin/leads/{id} for the back office.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing lead id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	lead, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		h.logger.Error("failed to load lead", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, msgUnexpected)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// MethodNotAllowed answers 405 with the JSON error body.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
