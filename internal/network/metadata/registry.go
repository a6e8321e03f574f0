// internal/network/metadata/registry.go
package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"beacon-network/internal/audit"
	apperrors "beacon-network/internal/common/errors"
	"beacon-network/internal/common/events"
	"beacon-network/internal/common/logger"
	"beacon-network/internal/common/metrics"
	"beacon-network/internal/common/validation"
	"beacon-network/internal/models"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

var ErrMissingBeaconID = errors.New("MISSING_BEACON_ID")

// Validator checks a raw document against a named schema.
type Validator interface {
	Validate(name validation.SchemaName, doc []byte) (*validation.ValidationResult, error)
}

// AuditLog records metadata fetches and serves last-known-good documents.
type AuditLog interface {
	Record(ctx context.Context, entry audit.Entry)
	LastResponse(ctx context.Context, url string) (*audit.Entry, error)
}

// Publisher receives a notification after every committed change.
type Publisher interface {
	Publish(event events.MetadataUpdated)
}

type outcome int

const (
	outcomeStored outcome = iota
	outcomeUnchanged
	outcomeInvalid
	outcomeFailed
	outcomeAbsent
)

var outcomeLabels = map[outcome]string{
	outcomeStored:    "stored",
	outcomeUnchanged: "unchanged",
	outcomeInvalid:   "invalid",
	outcomeFailed:    "failed",
	outcomeAbsent:    "absent",
}

type kindResult struct {
	kind    Kind
	url     string
	outcome outcome
	doc     any
	hash    uint64
	errors  []models.MetadataErrorLocation
}

// backendUpdate is everything learned about one backend in one cycle,
// gathered without touching the snapshot.
type backendUpdate struct {
	endpoint  string
	knownID   string
	info      kindResult
	recovered *models.InfoResponse
	kinds     []kindResult
}

// Registry mirrors the metadata of every backend in the current list.
// Readers load the current snapshot without locking; writers are serialized
// and publish a fresh snapshot per cycle.
type Registry struct {
	config    *Config
	fetcher   Fetcher
	validator Validator
	audit     AuditLog
	notifier  Publisher
	logger    logger.Logger

	current atomic.Pointer[Snapshot]

	mu       sync.Mutex
	backends []string
	// hashes is keyed by metadata document URL and guarded by mu.
	hashes map[string]uint64
}

func NewRegistry(config *Config, fetcher Fetcher, validator Validator, auditLog AuditLog, notifier Publisher, log logger.Logger) *Registry {
	r := &Registry{
		config:    config,
		fetcher:   fetcher,
		validator: validator,
		audit:     auditLog,
		notifier:  notifier,
		logger:    log.WithFields(map[string]interface{}{"component": "metadata-registry"}),
		hashes:    make(map[string]uint64),
	}
	r.current.Store(NewSnapshot())
	return r
}

// Snapshot returns the current consistent view.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Backends returns the backend list the registry currently tracks.
func (r *Registry) Backends() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.backends)
}

// RefreshAll forgets every hash and error and reloads every backend.
func (r *Registry) RefreshAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.hashes)
	next := r.current.Load().clone()
	clear(next.Errors)

	r.refresh(ctx, next, r.backends)
	r.commit(next, true)
}

// Refresh reloads every backend, skipping documents whose content did not change.
func (r *Registry) Refresh(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.current.Load().clone()
	changed := r.refresh(ctx, next, r.backends)
	r.commit(next, changed)
}

// RefreshBackend reloads a single backend.
func (r *Registry) RefreshBackend(ctx context.Context, endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.current.Load().clone()
	changed := r.refresh(ctx, next, []string{endpoint})
	r.commit(next, changed)
}

// ApplyBackendListChange drops backends missing from urls and loads the ones not yet known.
func (r *Registry) ApplyBackendListChange(ctx context.Context, urls []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.current.Load().clone()
	changed := false

	for id, endpoint := range next.Endpoints {
		if slices.Contains(urls, endpoint) {
			continue
		}
		next.purge(id)
		delete(next.Errors, endpoint)
		r.forgetHashes(endpoint)
		changed = true
		r.logger.Info("backend removed", map[string]interface{}{"beaconId": id, "endpoint": endpoint})
	}
	for endpoint := range next.Errors {
		if !slices.Contains(urls, endpoint) {
			delete(next.Errors, endpoint)
			changed = true
		}
	}

	var added []string
	for _, endpoint := range urls {
		if next.BeaconID(endpoint) == "" && !slices.Contains(added, endpoint) {
			added = append(added, endpoint)
		}
	}
	r.backends = slices.Clone(urls)

	if r.refresh(ctx, next, added) {
		changed = true
	}
	r.commit(next, changed)
}

func (r *Registry) commit(next *Snapshot, changed bool) {
	if !changed {
		return
	}
	next.Version = r.current.Load().Version + 1
	r.current.Store(next)
	metrics.RegistryBackends.Set(float64(len(next.Endpoints)))

	r.logger.Info("metadata updated", map[string]interface{}{
		"version":  next.Version,
		"backends": len(next.Endpoints),
		"errors":   len(next.Errors),
	})
	if r.notifier != nil {
		r.notifier.Publish(events.MetadataUpdated{
			Version:    next.Version,
			Backends:   len(next.Endpoints),
			OccurredAt: time.Now().UTC(),
		})
	}
}

// refresh fetches the endpoints concurrently and then applies the results to
// next in list order. Must be called with mu held.
func (r *Registry) refresh(ctx context.Context, next *Snapshot, endpoints []string) bool {
	if len(endpoints) == 0 {
		return false
	}

	updates := make([]*backendUpdate, len(endpoints))
	g, gctx := errgroup.WithContext(ctx)
	if r.config.MaxConcurrency > 0 {
		g.SetLimit(r.config.MaxConcurrency)
	}
	for i, endpoint := range endpoints {
		i, endpoint := i, endpoint
		knownID := next.BeaconID(endpoint)
		g.Go(func() error {
			updates[i] = r.fetchBackend(gctx, endpoint, knownID)
			return nil
		})
	}
	_ = g.Wait()

	changed := false
	for _, u := range updates {
		if r.apply(next, u) {
			changed = true
		}
	}
	return changed
}

func (r *Registry) fetchBackend(ctx context.Context, endpoint, knownID string) *backendUpdate {
	u := &backendUpdate{endpoint: endpoint, knownID: knownID}
	u.info = r.fetchKind(ctx, endpoint, KindInfo, knownID != "")

	switch u.info.outcome {
	case outcomeStored, outcomeUnchanged:
		for _, kind := range DependentKinds {
			u.kinds = append(u.kinds, r.fetchKind(ctx, endpoint, kind, knownID != ""))
		}
	default:
		if knownID == "" {
			u.recovered = r.lastKnownInfo(ctx, KindInfo.URL(endpoint))
		}
	}
	return u
}

// fetchKind reads the hash table concurrently with other fetches; it is only
// written by apply once every fetch has returned.
func (r *Registry) fetchKind(ctx context.Context, endpoint string, kind Kind, useHash bool) kindResult {
	url := kind.URL(endpoint)
	res := kindResult{kind: kind, url: url}

	start := time.Now()
	body, status, err := r.fetcher.Fetch(ctx, url)
	entry := audit.Entry{
		Type:      audit.RequestMetadata,
		Method:    http.MethodGet,
		URL:       url,
		Code:      status,
		ElapsedMS: time.Since(start).Milliseconds(),
	}
	defer func() {
		metrics.MetadataRefresh.WithLabelValues(string(kind), outcomeLabels[res.outcome]).Inc()
		if r.audit != nil {
			r.audit.Record(ctx, entry)
		}
	}()

	if err != nil {
		if kind.Optional() && status == http.StatusNotFound {
			res.outcome = outcomeAbsent
			return res
		}
		entry.Message = err.Error()
		res.outcome = outcomeFailed
		res.errors = []models.MetadataErrorLocation{{Location: url, Message: fetchMessage(err)}}
		return res
	}

	res.hash = xxhash.Sum64(body)
	if useHash {
		if prev, ok := r.hashes[url]; ok && prev == res.hash {
			entry.Code = audit.StatusNotModified
			res.outcome = outcomeUnchanged
			return res
		}
	}
	entry.Response = string(body)

	doc, violations := r.parse(kind, body)
	if len(violations) > 0 {
		entry.Message = violations[len(violations)-1].Message
		res.outcome = outcomeInvalid
		res.errors = make([]models.MetadataErrorLocation, 0, len(violations))
		for _, v := range violations {
			res.errors = append(res.errors, models.MetadataErrorLocation{Location: url, Message: v.Message})
		}
		r.logger.Warn("metadata validation failed", map[string]interface{}{
			"endpoint":   endpoint,
			"kind":       string(kind),
			"violations": len(violations),
			"error":      apperrors.NewMetadataValidationFailedError(url, len(violations)).Error(),
		})
		return res
	}

	res.outcome = outcomeStored
	res.doc = doc
	return res
}

func (r *Registry) parse(kind Kind, body []byte) (any, []validation.ValidationError) {
	return parseDocument(r.validator, kind, body)
}

// parseDocument validates the raw document and decodes it. The returned
// violations are empty on success.
func parseDocument(validator Validator, kind Kind, body []byte) (any, []validation.ValidationError) {
	result, err := validator.Validate(kind.Schema(), body)
	if err != nil {
		return nil, []validation.ValidationError{{Field: "(root)", Message: err.Error()}}
	}
	if !result.Valid {
		msgs := result.Messages()
		out := make([]validation.ValidationError, len(msgs))
		for i, m := range msgs {
			out[i] = validation.ValidationError{Field: result.Errors[i].Field, Message: m}
		}
		return nil, out
	}

	doc, err := decodeDocument(kind, body)
	if err != nil {
		return nil, []validation.ValidationError{{
			Field:   "(root)",
			Message: fmt.Sprintf("error parsing response: %v", err),
		}}
	}
	if kind == KindInfo && doc.(*models.InfoResponse).Meta.BeaconID == "" {
		return nil, []validation.ValidationError{{Field: "meta.beaconId", Message: ErrMissingBeaconID.Error()}}
	}
	return doc, nil
}

func (r *Registry) lastKnownInfo(ctx context.Context, url string) *models.InfoResponse {
	if r.audit == nil {
		return nil
	}
	entry, err := r.audit.LastResponse(ctx, url)
	if err != nil || entry == nil || entry.Response == "" {
		return nil
	}
	doc, violations := r.parse(KindInfo, []byte(entry.Response))
	if len(violations) > 0 {
		return nil
	}
	r.logger.Info("using last known info", map[string]interface{}{"url": url, "recordedAt": entry.CreatedAt})
	return doc.(*models.InfoResponse)
}

// apply folds one backend update into next. Must be called with mu held.
func (r *Registry) apply(next *Snapshot, u *backendUpdate) bool {
	endpoint := u.endpoint
	r.recordHash(u.info)

	var id string
	switch u.info.outcome {
	case outcomeUnchanged:
		id = u.knownID
	case outcomeStored:
		info := u.info.doc.(*models.InfoResponse)
		id = info.Meta.BeaconID
		if other, taken := next.Endpoints[id]; taken && other != endpoint {
			delete(r.hashes, u.info.url)
			next.Errors[endpoint] = []models.MetadataErrorLocation{{
				Location: u.info.url,
				Message:  fmt.Sprintf("beaconId %q is already registered by %s", id, other),
			}}
			r.logger.Warn("duplicate beacon id", map[string]interface{}{
				"beaconId": id, "endpoint": endpoint, "registeredBy": other,
			})
			return true
		}
		if u.knownID != "" && u.knownID != id {
			r.logger.Info("beacon id changed", map[string]interface{}{
				"endpoint": endpoint, "from": u.knownID, "to": id,
			})
			next.relocate(u.knownID, id)
		}
		next.Endpoints[id] = endpoint
		next.set(KindInfo, id, info)
	default:
		if u.knownID == "" && u.recovered != nil {
			rid := u.recovered.Meta.BeaconID
			if _, taken := next.Endpoints[rid]; !taken {
				next.Endpoints[rid] = endpoint
				next.set(KindInfo, rid, u.recovered)
			}
		}
		next.Errors[endpoint] = u.info.errors
		r.logger.Warn("backend info unavailable", map[string]interface{}{
			"endpoint": endpoint,
			"beaconId": u.knownID,
			"errors":   len(u.info.errors),
		})
		return true
	}

	changed := u.info.outcome == outcomeStored
	var errs []models.MetadataErrorLocation
	touched := changed
	for _, res := range u.kinds {
		r.recordHash(res)
		switch res.outcome {
		case outcomeUnchanged:
			continue
		case outcomeAbsent:
			if next.has(res.kind, id) {
				next.remove(res.kind, id)
				changed = true
			}
			continue
		case outcomeStored:
			next.set(res.kind, id, res.doc)
		default:
			next.remove(res.kind, id)
			errs = append(errs, res.errors...)
		}
		touched = true
		changed = true
	}

	if touched {
		if len(errs) == 0 {
			delete(next.Errors, endpoint)
		} else {
			next.Errors[endpoint] = errs
		}
	}
	return changed
}

// recordHash keeps the hash of stored documents and forgets the hash of
// anything that did not validate. Must be called with mu held.
func (r *Registry) recordHash(res kindResult) {
	switch res.outcome {
	case outcomeStored:
		r.hashes[res.url] = res.hash
	case outcomeInvalid, outcomeFailed, outcomeAbsent:
		delete(r.hashes, res.url)
	}
}

func (r *Registry) forgetHashes(endpoint string) {
	prefix := strings.TrimRight(endpoint, "/") + "/"
	for url := range r.hashes {
		if strings.HasPrefix(url, prefix) {
			delete(r.hashes, url)
		}
	}
}

func fetchMessage(err error) string {
	var se *apperrors.StandardError
	if errors.As(err, &se) && se.Details != "" {
		return se.Details
	}
	return err.Error()
}
