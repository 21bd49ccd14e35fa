package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRESTTimeout = 15 * time.Second
	maxRESTBodyBytes   = 1 << 20
)

var errEmptyRepresentation = errors.New("store returned no row")

// RESTConfig configures the Supabase (PostgREST) lead store.
type RESTConfig struct {
	BaseURL    string
	ServiceKey string
	Table      string
	HTTPClient *http.Client
}

// RESTRepository writes leads through the Supabase REST API using the
// service-role key. The database assigns id and created_at; the row is read
// back from the insert response.
type RESTRepository struct {
	baseURL    string
	serviceKey string
	table      string
	httpClient *http.Client
}

// NewRESTRepository creates a REST-backed repository. Missing credentials
// are not rejected here; every call fails with ErrStoreNotConfigured instead
// so a misconfigured deploy surfaces as 500s on the form.
func NewRESTRepository(cfg RESTConfig) *RESTRepository {
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = "leads"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRESTTimeout}
	}
	return &RESTRepository{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		serviceKey: strings.TrimSpace(cfg.ServiceKey),
		table:      table,
		httpClient: client,
	}
}

// restRow decodes a returned row whose id may be a uuid string or a bigint.
type restRow struct {
	Lead
	ID json.RawMessage `json:"id"`
}

// Create inserts one row and returns the stored representation.
func (r *RESTRepository) Create(ctx context.Context, sub *Submission, meta Metadata) (*Lead, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if !r.configured() {
		return nil, ErrStoreNotConfigured
	}

	row := newLead(sub, meta)
	payload, err := json.Marshal(insertPayload(row))
	if err != nil {
		return nil, &StoreError{Op: "insert", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tableURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, &StoreError{Op: "insert", Err: err}
	}
	r.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	rows, err := r.do(req, "insert")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &StoreError{Op: "insert", Err: errEmptyRepresentation}
	}
	if rows[0].ID == "" || rows[0].CreatedAt.IsZero() {
		return nil, &StoreError{Op: "insert", Err: fmt.Errorf("store returned row without id or created_at")}
	}
	return &rows[0], nil
}

// GetByID reads a single lead.
func (r *RESTRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	if !r.configured() {
		return nil, ErrStoreNotConfigured
	}
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "*")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.tableURL()+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &StoreError{Op: "select", Err: err}
	}
	r.setHeaders(req)

	rows, err := r.do(req, "select")
	if err != nil {
		var serr *StoreError
		// PostgREST answers 400 when the id is not a valid uuid.
		if errors.As(err, &serr) && serr.StatusCode == http.StatusBadRequest {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrLeadNotFound
	}
	return &rows[0], nil
}

func (r *RESTRepository) configured() bool {
	return r.baseURL != "" && r.serviceKey != ""
}

func (r *RESTRepository) tableURL() string {
	return r.baseURL + "/rest/v1/" + url.PathEscape(r.table)
}

func (r *RESTRepository) setHeaders(req *http.Request) {
	req.Header.Set("apikey", r.serviceKey)
	req.Header.Set("Authorization", "Bearer "+r.serviceKey)
	req.Header.Set("Accept", "application/json")
}

func (r *RESTRepository) do(req *http.Request, op string) ([]Lead, error) {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRESTBodyBytes))
	if err != nil {
		return nil, &StoreError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StoreError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var raw []restRow
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &StoreError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	out := make([]Lead, 0, len(raw))
	for _, row := range raw {
		lead := row.Lead
		lead.ID = normalizeID(row.ID)
		lead.CreatedAt = lead.CreatedAt.UTC()
		out = append(out, lead)
	}
	return out, nil
}

// insertPayload omits id and created_at so the database defaults apply.
// Optional fields go out as "" because the columns are NOT NULL and
// PostgREST stores an explicit null as NULL rather than the default.
func insertPayload(l Lead) map[string]any {
	return map[string]any{
		"project_type":      l.ProjectType,
		"description":       l.Description,
		"timeline":          l.Timeline,
		"budget_range":      l.BudgetRange,
		"zip_code":          l.ZipCode,
		"full_name":         l.FullName,
		"email":             l.Email,
		"phone":             l.Phone,
		"preferred_contact": l.PreferredContact,
		"source_page":       l.SourcePage,
		"user_agent":        l.UserAgent,
		"ip":                l.IP,
		"status":            l.Status,
	}
}

func normalizeID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return strings.Trim(string(raw), `"`)
}

var _ Repository = (*RESTRepository)(nil)
