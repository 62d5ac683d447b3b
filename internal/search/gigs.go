// internal/search/gigs.go

// Package search keeps a secondary gig index in Elasticsearch for the
// browse pages. The relational store stays authoritative; the index is
// rebuilt from feed events and a stale document only degrades search
// results, never correctness.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/common/logger"
	"musikmatch/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

const DefaultIndex = "gigs"

// Query is one browse-page search.
type Query struct {
	Keywords   string
	City       string
	StartAfter time.Time
	BudgetMax  int
	From       int
	Size       int
}

// Result is a search response page.
type Result struct {
	Gigs      []models.Gig
	TotalHits int64
}

type GigIndex struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
	logger  logger.Logger
}

func NewGigIndex(client *elasticsearch.Client, index string, timeout time.Duration, log logger.Logger) *GigIndex {
	if index == "" {
		index = DefaultIndex
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GigIndex{
		client:  client,
		index:   index,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "gig-index"}),
	}
}

type gigDocument struct {
	ID              int64     `json:"id"`
	VenueID         string    `json:"venue_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	City            string    `json:"city,omitempty"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	BudgetMin       *int      `json:"budget_min,omitempty"`
	BudgetMax       *int      `json:"budget_max,omitempty"`
}

// Index upserts one gig document.
func (g *GigIndex) Index(ctx context.Context, gig models.Gig) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	doc := gigDocument{
		ID:              gig.ID,
		VenueID:         gig.VenueID.String(),
		Title:           gig.Title,
		Description:     gig.Description,
		City:            gig.City,
		StartTime:       gig.StartTime,
		DurationMinutes: gig.DurationMinutes,
		BudgetMin:       gig.BudgetMin,
		BudgetMax:       gig.BudgetMax,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.NewSearchQueryFailedError(err)
	}

	req := esapi.IndexRequest{
		Index:      g.index,
		DocumentID: strconv.FormatInt(gig.ID, 10),
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, g.client)
	if err != nil {
		return errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewSearchQueryFailedError(fmt.Errorf("index gig %d: %s", gig.ID, res.Status()))
	}
	return nil
}

// Delete removes a gig document. A missing document is not an error.
func (g *GigIndex) Delete(ctx context.Context, gigID int64) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := esapi.DeleteRequest{
		Index:      g.index,
		DocumentID: strconv.FormatInt(gigID, 10),
	}
	res, err := req.Do(ctx, g.client)
	if err != nil {
		return errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return errors.NewSearchQueryFailedError(fmt.Errorf("delete gig %d: %s", gigID, res.Status()))
	}
	return nil
}

// Search runs a browse query and returns matching gigs ordered by start
// time ascending when no keywords are given, by relevance otherwise.
func (g *GigIndex) Search(ctx context.Context, q Query) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(buildGigQuery(q))
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	size := q.Size
	if size <= 0 {
		size = 20
	}
	from := q.From

	req := esapi.SearchRequest{
		Index: []string{g.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}
	res, err := req.Do(ctx, g.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewSearchQueryFailedError(ctx.Err())
		}
		return nil, errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(fmt.Errorf("search: %s", res.Status()))
	}

	return decodeSearchResponse(res.Body)
}

func buildGigQuery(q Query) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if q.Keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Keywords,
				"fields": []string{"title^3", "description^2", "city"},
				"type":   "best_fields",
			},
		})
	}
	if q.City != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"city": q.City},
		})
	}
	if !q.StartAfter.IsZero() {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"start_time": map[string]interface{}{"gte": q.StartAfter.Format(time.RFC3339)},
			},
		})
	}
	if q.BudgetMax > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"budget_min": map[string]interface{}{"lte": q.BudgetMax},
			},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(mustClauses) > 0 {
		boolQuery["must"] = mustClauses
	}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}
	if len(boolQuery) == 0 {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
	if q.Keywords == "" {
		body["sort"] = []interface{}{
			map[string]interface{}{"start_time": map[string]interface{}{"order": "asc"}},
		}
	}
	return body
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source gigDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func decodeSearchResponse(body io.Reader) (*Result, error) {
	var parsed searchResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	out := &Result{TotalHits: parsed.Hits.Total.Value}
	for _, hit := range parsed.Hits.Hits {
		gig, err := hit.Source.toModel()
		if err != nil {
			return nil, errors.NewMalformedRowError("gigs", err.Error())
		}
		out.Gigs = append(out.Gigs, gig)
	}
	return out, nil
}

func (d gigDocument) toModel() (models.Gig, error) {
	venueID, err := uuid.Parse(d.VenueID)
	if err != nil {
		return models.Gig{}, err
	}
	return models.Gig{
		ID:              d.ID,
		VenueID:         venueID,
		Title:           d.Title,
		Description:     d.Description,
		City:            d.City,
		StartTime:       d.StartTime,
		DurationMinutes: d.DurationMinutes,
		BudgetMin:       d.BudgetMin,
		BudgetMax:       d.BudgetMax,
	}, nil
}
