// internal/audit/elasticsearch.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchStore indexes every entry for search.
type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchStore(client *elasticsearch.Client, index string) *ElasticsearchStore {
	return &ElasticsearchStore{client: client, index: index}
}

func (s *ElasticsearchStore) Name() string { return "elasticsearch" }

func (s *ElasticsearchStore) Save(ctx context.Context, e *Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(e.ID),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index audit entry: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index audit entry: %s", res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source Entry `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchStore) LastResponse(ctx context.Context, url string) (*Entry, error) {
	query := map[string]interface{}{
		"size": 1,
		"sort": []interface{}{
			map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"url.keyword": url}},
					map[string]interface{}{"term": map[string]interface{}{"code": 200}},
				},
			},
		},
	}
	body, _ := json.Marshal(query)

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search audit entries: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil, ErrNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("search audit entries: %s", res.Status())
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if len(out.Hits.Hits) == 0 || out.Hits.Hits[0].Source.Response == "" {
		return nil, ErrNotFound
	}
	e := out.Hits.Hits[0].Source
	return &e, nil
}
