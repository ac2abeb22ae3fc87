// Package toolregistry exposes the fourteen named callable operations of
// spec.md §4.E ("tools") behind one dispatch entry point: name lookup,
// schema validation, per-tool quota, a bounded deadline, and a uniform
// response envelope. The registry owns no business logic of its own —
// every handler is a thin wrapper over the tracker/scm clients or the
// aggregation service.
package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/aggregator"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/cache"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/logging"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/resilience"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/scm"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/svcerrors"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/tracker"
)

const defaultToolDeadline = 30 * time.Second
const defaultToolQuotaPerMin = 60

// RegistryContext bundles the shared collaborators every tool handler is
// given; it plays the role of spec.md §4.E's "shared context
// {cache, clients, logger, quotas}".
type RegistryContext struct {
	Tracker    *tracker.Client
	SCM        *scm.Client // nil when no SCM client is configured
	Aggregator *aggregator.Service
	Cache      *cache.Engine
	Breakers   map[string]*resilience.Breaker // keyed by provider name, for health_check
	Log        *logging.Logger
}

// FieldType is the scalar/collection type a tool input field accepts.
type FieldType string

const (
	TypeString      FieldType = "string"
	TypeInt         FieldType = "int"
	TypeBool        FieldType = "bool"
	TypeStringSlice FieldType = "stringSlice"
)

// Field describes one input-schema field: name, type, required flag, and
// a default value substituted when the field is omitted.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Default  any
}

// Handler is a validated-input tool implementation.
type Handler func(ctx context.Context, rc *RegistryContext, args map[string]any) (any, error)

// ToolDef is one registered tool: its input schema and handler.
type ToolDef struct {
	Name     string
	Fields   []Field
	Deadline time.Duration
	Handler  Handler
}

// ErrorPayload is the enhanced, taxonomy-mapped error surfaced in an
// Envelope, per §4.E ("error enhancement").
type ErrorPayload struct {
	Kind    svcerrors.Kind `json:"kind"`
	Message string         `json:"message"`
	Debug   string         `json:"debug,omitempty"`
	Fields  []string       `json:"fields,omitempty"`
}

// Envelope is the uniform response shape of every Invoke call.
type Envelope struct {
	Success    bool          `json:"success"`
	ToolName   string        `json:"toolName"`
	Result     any           `json:"result,omitempty"`
	Error      *ErrorPayload `json:"error,omitempty"`
	DurationMs int64         `json:"durationMs"`
}

// Registry holds the fourteen registered tools and their per-tool quota
// limiters.
type Registry struct {
	rc       *RegistryContext
	tools    map[string]ToolDef
	limiters map[string]*resilience.Limiter
}

// New constructs a Registry with all fourteen tools of §4.E registered,
// each quota-limited per quotaPerMin (falling back to
// defaultToolQuotaPerMin when a tool has no configured entry).
func New(rc *RegistryContext, quotaPerMin map[string]int) *Registry {
	reg := &Registry{
		rc:       rc,
		tools:    make(map[string]ToolDef),
		limiters: make(map[string]*resilience.Limiter),
	}
	for _, def := range allToolDefs() {
		reg.register(def, quotaPerMin[def.Name])
	}
	return reg
}

func (r *Registry) register(def ToolDef, quota int) {
	if quota <= 0 {
		quota = defaultToolQuotaPerMin
	}
	if def.Deadline <= 0 {
		def.Deadline = defaultToolDeadline
	}
	r.tools[def.Name] = def
	r.limiters[def.Name] = resilience.NewLimiter(resilience.LimiterConfig{
		PerMinute: quota,
		Burst:     quota,
		MaxWait:   5 * time.Second,
	})
}

// Names returns the registered tool names, for introspection/listing.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Invoke performs name lookup → schema validation → quota acquire →
// handler execution under a per-tool deadline → envelope assembly, per
// §4.E. An unknown tool name is a caller/integration error and is
// returned directly rather than folded into an Envelope.
func (r *Registry) Invoke(ctx context.Context, toolName string, rawInput json.RawMessage) (*Envelope, error) {
	def, ok := r.tools[toolName]
	if !ok {
		return nil, fmt.Errorf("toolregistry: unknown tool %q", toolName)
	}
	start := time.Now()

	var raw map[string]any
	if len(rawInput) > 0 {
		if err := json.Unmarshal(rawInput, &raw); err != nil {
			return errorEnvelope(toolName, start, svcerrors.KindValidation, "input is not a valid JSON object", nil), nil
		}
	}

	args, fieldErrs := validate(def.Fields, raw)
	if len(fieldErrs) > 0 {
		return errorEnvelope(toolName, start, svcerrors.KindValidation, "input failed validation", fieldErrs), nil
	}

	if err := r.limiters[toolName].Acquire(ctx, "tool:"+toolName, 1); err != nil {
		return errorEnvelope(toolName, start, svcerrors.KindRateLimit, "tool quota exceeded, retry later", nil), nil
	}

	hctx, cancel := context.WithTimeout(ctx, def.Deadline)
	defer cancel()

	result, err := def.Handler(hctx, r.rc, args)
	if err != nil {
		return errEnvelopeFromHandlerErr(toolName, start, err), nil
	}

	return &Envelope{
		Success:    true,
		ToolName:   toolName,
		Result:     result,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func errorEnvelope(toolName string, start time.Time, kind svcerrors.Kind, message string, fields []string) *Envelope {
	return &Envelope{
		Success:    false,
		ToolName:   toolName,
		Error:      &ErrorPayload{Kind: kind, Message: message, Fields: fields},
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// errEnvelopeFromHandlerErr maps a handler error to the taxonomy kind,
// preserving the user-facing message while keeping the original error
// text in Debug only, per §4.E / §7 (message vs debug separation).
func errEnvelopeFromHandlerErr(toolName string, start time.Time, err error) *Envelope {
	kind := svcerrors.KindInternal
	message := "an internal error occurred"
	debug := err.Error()
	if se, ok := svcerrors.As(err); ok {
		kind = se.Kind
		message = se.Message
		if se.Debug != "" {
			debug = se.Debug
		}
	}
	return &Envelope{
		Success:  false,
		ToolName: toolName,
		Error:    &ErrorPayload{Kind: kind, Message: message, Debug: debug},
		DurationMs: time.Since(start).Milliseconds(),
	}
}
