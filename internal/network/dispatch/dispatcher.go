// internal/network/dispatch/dispatcher.go
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"beacon-network/internal/audit"
	apperrors "beacon-network/internal/common/errors"
	commonhttp "beacon-network/internal/common/http"
	"beacon-network/internal/common/logger"
	"beacon-network/internal/common/metrics"
	"beacon-network/internal/common/validation"
	"beacon-network/internal/models"
	"beacon-network/internal/network/endpoints"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Validator interface {
	Validate(name validation.SchemaName, doc []byte) (*validation.ValidationResult, error)
}

// TokenExchanger maps Authorization header values for one backend.
type TokenExchanger interface {
	Exchange(ctx context.Context, beaconID string, headers []string) []string
}

type AuditLog interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Dispatcher fans one inbound request out to every matched backend and
// classifies each outcome. Calls are never retried.
type Dispatcher struct {
	config    *Config
	client    *commonhttp.Client
	validator Validator
	tokens    TokenExchanger
	audit     AuditLog
	tracer    trace.Tracer
	logger    logger.Logger
}

// NewDispatcher builds a dispatcher. tokens, auditLog and tracer may be nil.
func NewDispatcher(config *Config, client *commonhttp.Client, validator Validator,
	tokens TokenExchanger, auditLog AuditLog, tracer trace.Tracer, log logger.Logger) *Dispatcher {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("dispatch")
	}
	return &Dispatcher{
		config:    config,
		client:    client,
		validator: validator,
		tokens:    tokens,
		audit:     auditLog,
		tracer:    tracer,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Dispatch issues one concurrent call per template and returns one result per
// template, in template order. It returns once every call is classified or
// the join deadline passes.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request, templates []endpoints.Template) []*Result {
	if len(templates) == 0 {
		return nil
	}

	jobs := make([]chan *Result, len(templates))
	for i, tpl := range templates {
		ch := make(chan *Result, 1)
		jobs[i] = ch
		go func(tpl endpoints.Template) {
			ch <- d.execute(ctx, req, tpl)
		}(tpl)
	}

	deadline := time.NewTimer(d.config.RequestTimeout + d.config.AwaitTimeout)
	defer deadline.Stop()

	results := make([]*Result, len(templates))
	expired := false
	for i, ch := range jobs {
		if !expired {
			select {
			case results[i] = <-ch:
				continue
			case <-deadline.C:
				expired = true
			}
		}
		select {
		case results[i] = <-ch:
		default:
			results[i] = d.abandon(req, templates[i])
		}
	}
	return results
}

// abandon classifies a job that missed the join deadline. The job itself
// keeps running and records its own audit entry when it ends.
func (d *Dispatcher) abandon(req *Request, tpl endpoints.Template) *Result {
	res := newResult(tpl, OutboundURL(tpl, req.Path, req.RawQuery))
	res.timeout()
	res.Elapsed = d.config.RequestTimeout + d.config.AwaitTimeout
	failure := res.Failure()
	d.logger.Warn("backend call abandoned at join deadline", map[string]interface{}{
		"beaconId":      tpl.BeaconID,
		"template":      tpl.URL,
		"correlationId": req.CorrelationID,
		"errorCode":     string(failure.Code),
	})
	return res
}

func (d *Dispatcher) execute(parent context.Context, req *Request, tpl endpoints.Template) *Result {
	// Client disconnects do not cancel backend calls; only the request timeout does.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.config.RequestTimeout)
	defer cancel()

	ctx, span := d.tracer.Start(ctx, "dispatch.backend", trace.WithAttributes(
		attribute.String("beacon.id", tpl.BeaconID),
		attribute.String("beacon.capability", tpl.Key),
		attribute.String("beacon.correlation_id", req.CorrelationID),
	))
	defer span.End()

	start := time.Now()
	res := newResult(tpl, OutboundURL(tpl, req.Path, req.RawQuery))
	d.call(ctx, req, tpl, res)
	res.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.String("beacon.outcome", res.Outcome.String()),
		attribute.Int("http.status_code", res.Status),
	)
	if failure := res.Failure(); failure != nil {
		span.SetStatus(codes.Error, res.Message)
		d.logger.Warn("backend call failed", map[string]interface{}{
			"beaconId":      res.BeaconID,
			"endpoint":      res.URL,
			"correlationId": req.CorrelationID,
			"outcome":       res.Outcome.String(),
			"status":        res.Status,
			"message":       res.Message,
			"errorCode":     string(failure.Code),
			"errorCategory": apperrors.GetErrorCategory(failure.Code),
			"retryable":     apperrors.IsRetryableErrorCode(failure.Code),
		})
	}

	metrics.BackendRequests.WithLabelValues(res.BeaconID, res.Outcome.String()).Inc()
	metrics.BackendRequestDuration.WithLabelValues(res.BeaconID).Observe(res.Elapsed.Seconds())
	d.record(parent, req, res)
	return res
}

func (d *Dispatcher) call(ctx context.Context, req *Request, tpl endpoints.Template, res *Result) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequest(method, res.URL, body)
	if err != nil {
		res.transportError(0, err.Error())
		return
	}
	httpReq.Header.Set("User-Agent", d.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	authorization := req.Authorization
	if d.tokens != nil && len(authorization) > 0 {
		authorization = d.tokens.Exchange(ctx, tpl.BeaconID, authorization)
	}
	for _, h := range authorization {
		httpReq.Header.Add("Authorization", h)
	}

	resp, err := d.client.DoWithContext(ctx, httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.timeout()
			return
		}
		res.transportError(0, err.Error())
		res.Unreachable = true
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		res.transportError(resp.StatusCode, msgBackendStatus)
		return
	}
	res.Status = resp.StatusCode

	d.process(resp.Body, req.TestMode, res)
	if !res.IsSuccess() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.timeout()
	}
}

// process decodes a 2xx body. Test mode materializes the body up front;
// otherwise it is decoded while being copied aside.
func (d *Dispatcher) process(body io.Reader, testMode bool, res *Result) {
	var (
		decoded *models.BeaconResponse
		err     error
	)
	if testMode {
		res.Body, err = io.ReadAll(body)
		if err != nil {
			res.transportError(0, err.Error())
			return
		}
		decoded, err = models.DecodeResponseBytes(res.Body)
	} else {
		var buf bytes.Buffer
		decoded, err = models.DecodeResponse(io.TeeReader(body, &buf))
		_, _ = io.Copy(&buf, body)
		res.Body = buf.Bytes()
	}

	if err != nil {
		d.fallback(res)
		return
	}
	if decoded.Kind == models.ResponseError {
		res.transportError(decoded.Error.Error.ErrorCode, decoded.Error.Error.ErrorMessage)
		res.Response = decoded
		return
	}
	res.Outcome = OutcomeSuccess
	res.Response = decoded
}

// fallback classifies an undecodable body by validating the raw bytes.
func (d *Dispatcher) fallback(res *Result) {
	if d.validator == nil {
		res.transportError(0, msgUndecodable)
		return
	}
	result, err := d.validator.Validate(validation.SchemaResponse, res.Body)
	if err != nil || result.Valid {
		res.transportError(0, msgUndecodable)
		return
	}
	res.Outcome = OutcomeValidationError
	res.Status = 0
	res.Violations = result.Errors
	res.Message = strings.Join(result.Messages(), "\n")
}

func (d *Dispatcher) record(ctx context.Context, req *Request, res *Result) {
	if d.audit == nil {
		return
	}
	d.audit.Record(ctx, audit.Entry{
		CorrelationID: req.CorrelationID,
		Type:          audit.RequestQuery,
		Method:        httpMethod(req.Method),
		URL:           res.URL,
		BeaconID:      res.BeaconID,
		Code:          res.Status,
		Message:       res.Message,
		Request:       string(req.Body),
		Response:      string(res.Body),
		ElapsedMS:     res.Elapsed.Milliseconds(),
	})
}

func httpMethod(m string) string {
	if m == "" {
		return http.MethodGet
	}
	return m
}

// OutboundURL is the backend root of tpl followed by the inbound path and query.
func OutboundURL(tpl endpoints.Template, path, rawQuery string) string {
	u := tpl.Base()
	if path != "" && !strings.HasPrefix(path, "/") {
		u += "/"
	}
	u += path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}
