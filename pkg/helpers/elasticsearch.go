package helpers

import (
	"github.com/elastic/go-elasticsearch/v8"
)

// NewESClient creates an Elasticsearch client. Returns nil when no
// addresses are configured; callers treat a nil client as "search via SQL".
func NewESClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	cfg := elasticsearch.Config{
		Addresses: addrs,
		Username:  username,
		Password:  password,
	}
	return elasticsearch.NewClient(cfg)
}
