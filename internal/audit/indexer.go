package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/mbelozerov/storefront/internal/events"
)

type Indexer struct {
	ES    *elasticsearch.Client
	Index string
}

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("es client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es error: %s: %s", res.Status(), body)
	}

	return client, nil
}

// Add indexes an auth event. Callers log and continue on failure: the
// audit trail never blocks a request.
func (ix *Indexer) Add(ctx context.Context, event events.Event) error {
	if ix == nil || ix.ES == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal: %w", err)
	}

	docID := strconv.FormatUint(uint64(event.UserID), 10) + "-" + strconv.FormatInt(event.At.UnixNano(), 10)
	res, err := ix.ES.Index(
		ix.Index,
		bytes.NewReader(data),
		ix.ES.Index.WithContext(ctx),
		ix.ES.Index.WithDocumentID(docID),
	)
	if err != nil {
		return fmt.Errorf("audit: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("audit: index: %s", res.Status())
	}
	return nil
}

// Search runs a fuzzy multi_match over event type and email for the admin
// analytics panel.
func (ix *Indexer) Search(ctx context.Context, query string, from, size int) (int64, []events.Event, error) {
	if ix == nil || ix.ES == nil {
		return 0, nil, fmt.Errorf("audit: no elasticsearch client configured")
	}

	body := map[string]interface{}{
		"from": from,
		"size": size,
		"sort": []map[string]interface{}{{"at": map[string]string{"order": "desc"}}},
	}
	if query != "" {
		body["query"] = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"type^2", "email"},
				"fuzziness": "AUTO",
			},
		}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("audit: encode query: %w", err)
	}

	res, err := ix.ES.Search(
		ix.ES.Search.WithContext(ctx),
		ix.ES.Search.WithIndex(ix.Index),
		ix.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("audit: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("audit: search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source events.Event `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	evts := make([]events.Event, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		evts[i] = hit.Source
	}
	return r.Hits.Total.Value, evts, nil
}
