package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"example.com/connectsphere/config"
	"example.com/connectsphere/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EventDocument is the indexed shape of a public event
type EventDocument struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	LocationText string    `json:"location_text"`
	Datetime     time.Time `json:"datetime"`
	Category     string    `json:"category"`
	CreatorID    string    `json:"creator_id"`
}

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

func (c *ElasticClient) index() string {
	return config.FormatIndex(c.config, c.config.Index)
}

// IndexEvent indexes a public event. Private events are removed instead so
// that toggling visibility takes them out of search.
func (c *ElasticClient) IndexEvent(ctx context.Context, event *models.Event) error {
	if !event.IsPublic {
		return c.DeleteEvent(ctx, event.ID)
	}

	doc := EventDocument{
		ID:           event.ID.String(),
		Title:        event.Title,
		LocationText: event.LocationText,
		Datetime:     event.Datetime.UTC(),
		Category:     string(event.Category),
		CreatorID:    event.CreatorID.String(),
	}
	if event.Description != nil {
		doc.Description = *event.Description
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event document")
	}

	req := esapi.IndexRequest{
		Index:      c.index(),
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError(res, "index")
	}

	log.Debug().Str("event_id", doc.ID).Msg("Event indexed")
	return nil
}

// DeleteEvent removes an event from the index. A missing document is not an error.
func (c *ElasticClient) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	req := esapi.DeleteRequest{
		Index:      c.index(),
		DocumentID: id.String(),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch delete request")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return responseError(res, "delete")
	}
	return nil
}

// SearchEvents runs a full-text query over upcoming public events and returns
// the matching event IDs in relevance order
func (c *ElasticClient) SearchEvents(ctx context.Context, text string, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 20
	}

	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  strings.TrimSpace(text),
						"fields": []string{"title^3", "description", "location_text^2", "category"},
					},
				},
				"filter": map[string]interface{}{
					"range": map[string]interface{}{
						"datetime": map[string]interface{}{"gte": "now"},
					},
				},
			},
		},
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{c.index()},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res, "search")
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source EventDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	ids := make([]uuid.UUID, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		id, err := uuid.Parse(hit.Source.ID)
		if err != nil {
			log.Warn().Str("id", hit.Source.ID).Msg("Skipping search hit with invalid id")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func responseError(res *esapi.Response, op string) error {
	var e map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		return errors.Wrapf(err, "failed to parse Elasticsearch %s error response", op)
	}
	return errors.Errorf("Elasticsearch %s error: %v", op, e)
}
