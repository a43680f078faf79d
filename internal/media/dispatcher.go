package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	requestTimeout = 15 * time.Second

	// MaxResults caps how many lookup results are returned to the caller.
	MaxResults = 25

	maxErrorBody = 64 << 10
)

// Notifier receives a line for the audit log. It must not block.
type Notifier interface {
	Notify(message string)
}

// AddResult is returned to the caller after a successful add.
type AddResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Dispatcher runs search and add requests against the registry's backends.
type Dispatcher struct {
	registry   *Registry
	httpClient *http.Client
	audit      Notifier
	log        *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = hc
	}
}

// WithNotifier sets where successful adds are announced.
func WithNotifier(n Notifier) Option {
	return func(d *Dispatcher) {
		d.audit = n
	}
}

// NewDispatcher creates a dispatcher over reg.
func NewDispatcher(reg *Registry, log *slog.Logger, opts ...Option) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		registry: reg,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		log: log.With("component", "media"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search looks term up on the backend for k and returns at most MaxResults
// sanitized results in backend order.
func (d *Dispatcher) Search(ctx context.Context, k Kind, term string) ([]any, error) {
	if !k.valid() {
		return nil, &UnknownKindError{Input: k.String()}
	}
	term = norm.NFC.String(strings.TrimSpace(term))
	if term == "" {
		return nil, ErrEmptyTerm
	}
	b, err := d.registry.Lookup(k)
	if err != nil {
		return nil, err
	}

	endpoint := b.BaseURL + b.LookupPath + "?" + url.Values{"term": {term}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setHeaders(req, b)

	d.log.Debug("lookup", "kind", k, "term", term)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.log.Warn("lookup transport error", "kind", k, "error", err)
		return nil, &Error{Label: b.Label, Err: ErrUpstreamUnreachable}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{Label: b.Label, Status: resp.StatusCode, Err: ErrLookupFailed}
	}

	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, &Error{Label: b.Label, Status: http.StatusBadGateway, Detail: "invalid response body", Err: ErrLookupFailed}
	}

	if len(items) > MaxResults {
		items = items[:MaxResults]
	}
	results := make([]any, len(items))
	for i, item := range items {
		results[i] = kinds[k].sanitize(parseRecord(item))
	}
	return results, nil
}

// Add asks the backend for k to start managing the item identified by body.
// actor is the Matrix user named in the audit log.
func (d *Dispatcher) Add(ctx context.Context, k Kind, actor string, body []byte) (*AddResult, error) {
	if !k.valid() {
		return nil, &UnknownKindError{Input: k.String()}
	}
	var fields record
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, ErrInvalidBody
	}
	b, err := d.registry.Lookup(k)
	if err != nil {
		return nil, err
	}

	spec := kinds[k]
	payload, err := json.Marshal(spec.payload(fields, b, spec.searchOption))
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+b.AddPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setHeaders(req, b)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.log.Warn("add transport error", "kind", k, "error", err)
		return nil, &Error{Label: b.Label, Err: ErrUpstreamUnreachable}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &Error{
			Label:  b.Label,
			Status: resp.StatusCode,
			Detail: errorDetail(respBody),
			Err:    ErrAddFailed,
		}
	}

	d.log.Info("added", "kind", k, "user_id", actor)
	if d.audit != nil {
		d.audit.Notify(fmt.Sprintf("[REQUEST] %s → [%s] %s", actor, b.Label, spec.describe(fields)))
	}

	return &AddResult{OK: true, Message: b.Label + " added successfully"}, nil
}

func setHeaders(req *http.Request, b Backend) {
	req.Header.Set("X-Api-Key", b.APIKey)
	req.Header.Set("Accept", "application/json")
}

// errorDetail pulls a readable message out of an arr error body. Arr services
// answer validation failures with a list of {errorMessage} objects and other
// failures with a single {message} object. Unparseable bodies yield "".
func errorDetail(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}

	switch t := v.(type) {
	case []any:
		var parts []string
		for _, item := range t {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if msg, _ := obj["errorMessage"].(string); msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		if msg, _ := t["message"].(string); msg != "" {
			return msg
		}
		msg, _ := t["errorMessage"].(string)
		return msg
	}
	return ""
}
