// internal/network/metadata/inspect.go
package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"beacon-network/internal/common/logger"

	"golang.org/x/sync/errgroup"
)

// Finding is one line of a backend check report.
type Finding struct {
	Code     int    `json:"code,omitempty"`
	Path     string `json:"path,omitempty"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
}

// Inspector checks the metadata a backend publishes without registering it.
type Inspector struct {
	fetcher   Fetcher
	validator Validator
	logger    logger.Logger
}

func NewInspector(fetcher Fetcher, validator Validator, log logger.Logger) *Inspector {
	return &Inspector{
		fetcher:   fetcher,
		validator: validator,
		logger:    log.WithFields(map[string]interface{}{"component": "metadata-inspector"}),
	}
}

// CheckEndpoint rejects anything but an absolute http(s) URL.
func CheckEndpoint(endpoint string) error {
	if endpoint == "" {
		return errors.New("missing Beacon endpoint")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid Beacon endpoint '%s' %v", endpoint, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("relative Beacon endpoint '%s'", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme in Beacon endpoint '%s'", endpoint)
	}
	return nil
}

// Inspect fetches info and every dependent document of endpoint and reports
// each violation, or one line per valid document. Findings keep the kind order.
func (i *Inspector) Inspect(ctx context.Context, endpoint string) []Finding {
	kinds := append([]Kind{KindInfo}, DependentKinds...)
	reports := make([][]Finding, len(kinds))

	start := time.Now()
	var g errgroup.Group
	for n, kind := range kinds {
		n, kind := n, kind
		g.Go(func() error {
			reports[n] = i.inspectKind(ctx, endpoint, kind)
			return nil
		})
	}
	_ = g.Wait()

	var out []Finding
	for _, r := range reports {
		out = append(out, r...)
	}
	i.logger.Info("backend inspected", map[string]interface{}{
		"endpoint":   endpoint,
		"findings":   len(out),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return out
}

func (i *Inspector) inspectKind(ctx context.Context, endpoint string, kind Kind) []Finding {
	location := kind.URL(endpoint)
	body, status, err := i.fetcher.Fetch(ctx, location)
	if err != nil {
		if kind.Optional() && status == http.StatusNotFound {
			return []Finding{{Location: location, Message: fmt.Sprintf("no %s document", kind)}}
		}
		return []Finding{{Code: status, Location: location, Message: fetchMessage(err)}}
	}

	_, violations := parseDocument(i.validator, kind, body)
	if len(violations) == 0 {
		return []Finding{{Location: location, Message: fmt.Sprintf("valid %s document", kind)}}
	}
	out := make([]Finding, len(violations))
	for n, v := range violations {
		out[n] = Finding{Path: v.Field, Location: location, Message: v.Message}
	}
	return out
}
