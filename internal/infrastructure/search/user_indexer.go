package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-user-service/internal/domain/entity"
)

// UserIndexer projects users into an Elasticsearch index. Soft-deleted users are removed.
type UserIndexer struct {
	es    *elasticsearch.Client
	index string
}

func NewUserIndexer(es *elasticsearch.Client, index string) *UserIndexer {
	return &UserIndexer{es: es, index: index}
}

// document is the indexed shape; it never carries the password.
func document(u entity.User) map[string]any {
	return map[string]any{
		"id":          u.ID,
		"userName":    u.UserName,
		"email":       u.Email,
		"firstName":   u.FirstName,
		"lastName":    u.LastName,
		"role":        u.Role,
		"isActive":    u.IsActive,
		"createdDate": u.CreatedDate.Format(time.RFC3339Nano),
	}
}

func (x *UserIndexer) Index(ctx context.Context, u entity.User) error {
	b, err := json.Marshal(document(u))
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req := esapi.IndexRequest{Index: x.index, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index user %s: %s", u.ID, res.Status())
	}
	return nil
}

func (x *UserIndexer) Remove(ctx context.Context, id string) error {
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := esapi.DeleteRequest{Index: x.index, DocumentID: id}.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("remove user %s: %s", id, res.Status())
	}
	return nil
}

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
)

// ClampSize bounds a requested result size to 1..50. Unset or negative sizes get 10.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return defaultSearchSize
	case size > maxSearchSize:
		return maxSearchSize
	}
	return size
}

// Search runs a multi_match over the name and email fields.
func (x *UserIndexer) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"userName^2", "email^2", "firstName", "lastName"},
			},
		},
		"size": ClampSize(size),
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := x.es.Search(x.es.Search.WithContext(c), x.es.Search.WithIndex(x.index), x.es.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search users: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
