package providers

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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotInitialized is returned when an adapter is used before Initialize.
var ErrNotInitialized = errors.New("provider not initialized")

const defaultProviderTimeout = 15 * time.Second

// Workflow describes a workflow on the automation platform.
type Workflow struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Execution is one recorded workflow run.
type Execution struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflowId"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// WorkflowProvider adapts a workflow-automation platform. Trigger
// registration is local bookkeeping (the platform discovers events through
// the webhooks it receives); workflow listing, activation, execution, and
// execution history go through the platform's REST API.
type WorkflowProvider struct {
	Base

	cfg  Config
	http *http.Client

	mu       sync.RWMutex
	triggers map[string]*WorkflowTrigger
	ready    bool
}

// NewWorkflowProvider creates an uninitialized adapter sharing the given
// delivery behavior.
func NewWorkflowProvider(base Base) *WorkflowProvider {
	return &WorkflowProvider{
		Base:     base,
		triggers: make(map[string]*WorkflowTrigger),
	}
}

// Initialize validates and applies the connection config.
func (p *WorkflowProvider) Initialize(_ context.Context, cfg Config) error {
	if cfg.BaseURL == "" {
		return errors.New("workflow provider: base_url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return fmt.Errorf("workflow provider: invalid base_url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProviderTimeout
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	p.http = &http.Client{Timeout: cfg.Timeout}
	p.ready = true

	log.Debug().Str("base_url", cfg.BaseURL).Msg("Workflow provider initialized")
	return nil
}

// RegisterTrigger stores a trigger in the adapter-local registry.
func (p *WorkflowProvider) RegisterTrigger(_ context.Context, spec TriggerSpec) (*WorkflowTrigger, error) {
	if spec.Name == "" {
		return nil, errors.New("workflow provider: trigger name is required")
	}
	if spec.URL == "" {
		return nil, errors.New("workflow provider: trigger webhook URL is required")
	}

	trigger := &WorkflowTrigger{
		ID:        uuid.New().String(),
		Name:      spec.Name,
		Event:     spec.Event,
		URL:       spec.URL,
		Active:    true,
		Headers:   spec.Headers,
		Filters:   spec.Filters,
		CreatedAt: time.Now().UTC(),
	}

	p.mu.Lock()
	p.triggers[trigger.ID] = trigger
	p.mu.Unlock()

	log.Info().
		Str("trigger_id", trigger.ID).
		Str("name", trigger.Name).
		Str("event", string(trigger.Event)).
		Msg("Workflow trigger registered")
	return trigger, nil
}

// DeactivateTrigger flips a trigger inactive, reporting whether it existed.
func (p *WorkflowProvider) DeactivateTrigger(_ context.Context, id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	trigger, ok := p.triggers[id]
	if !ok {
		return false, nil
	}
	trigger.Active = false

	log.Info().Str("trigger_id", id).Msg("Workflow trigger deactivated")
	return true, nil
}

// Triggers returns a snapshot of the local trigger registry.
func (p *WorkflowProvider) Triggers() []WorkflowTrigger {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]WorkflowTrigger, 0, len(p.triggers))
	for _, t := range p.triggers {
		out = append(out, *t)
	}
	return out
}

// TestConnection probes the platform health endpoint and measures latency.
func (p *WorkflowProvider) TestConnection(ctx context.Context) (*ConnectionStatus, error) {
	if err := p.checkReady(); err != nil {
		return nil, err
	}

	start := time.Now()
	var health struct {
		Status string `json:"status"`
	}
	err := p.getJSON(ctx, "/api/v1/health", &health)
	latency := time.Since(start)

	status := &ConnectionStatus{
		Latency:   latency,
		LatencyMs: latency.Milliseconds(),
	}
	if err != nil {
		status.Message = err.Error()
		return status, nil
	}

	status.Healthy = true
	status.Message = "ok"
	if health.Status != "" {
		status.Message = health.Status
	}
	return status, nil
}

// ListWorkflows fetches the workflows visible to the configured API key.
func (p *WorkflowProvider) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	if err := p.checkReady(); err != nil {
		return nil, err
	}

	var resp struct {
		Data []Workflow `json:"data"`
	}
	if err := p.getJSON(ctx, "/api/v1/workflows", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ActivateWorkflow enables or disables a workflow on the platform.
func (p *WorkflowProvider) ActivateWorkflow(ctx context.Context, workflowID string, active bool) error {
	if err := p.checkReady(); err != nil {
		return err
	}

	action := "activate"
	if !active {
		action = "deactivate"
	}
	path := fmt.Sprintf("/api/v1/workflows/%s/%s", url.PathEscape(workflowID), action)
	return p.postJSON(ctx, path, nil, nil)
}

// ExecuteWorkflow starts a workflow run with the given input and returns
// the created execution.
func (p *WorkflowProvider) ExecuteWorkflow(ctx context.Context, workflowID string, input map[string]any) (*Execution, error) {
	if err := p.checkReady(); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/api/v1/workflows/%s/execute", url.PathEscape(workflowID))
	var exec Execution
	if err := p.postJSON(ctx, path, input, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

// GetExecutions retrieves recent runs for a workflow, newest first.
func (p *WorkflowProvider) GetExecutions(ctx context.Context, workflowID string, limit int) ([]Execution, error) {
	if err := p.checkReady(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	path := "/api/v1/executions?workflowId=" + url.QueryEscape(workflowID) + "&limit=" + strconv.Itoa(limit)
	var resp struct {
		Data []Execution `json:"data"`
	}
	if err := p.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (p *WorkflowProvider) checkReady() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.ready {
		return ErrNotInitialized
	}
	return nil
}

func (p *WorkflowProvider) getJSON(ctx context.Context, path string, out any) error {
	return p.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (p *WorkflowProvider) postJSON(ctx context.Context, path string, in, out any) error {
	return p.doJSON(ctx, http.MethodPost, path, in, out)
}

func (p *WorkflowProvider) doJSON(ctx context.Context, method, path string, in, out any) error {
	p.mu.RLock()
	cfg := p.cfg
	client := p.http
	p.mu.RUnlock()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.APIKey != "" {
		req.Header.Set("X-API-Key", cfg.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
