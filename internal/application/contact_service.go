package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/mpetrenko/contacts-api/internal/domain/entity"
	repo "github.com/mpetrenko/contacts-api/internal/domain/repository"
)

var ErrContactNotFound = errors.New("contact not found")

// ContactService implements the contact book. Contacts are indexed to
// Elasticsearch opportunistically; search prefers ES and falls back to a
// SQL ILIKE scan when ES is not configured or fails.
type ContactService struct {
	Repo    repo.ContactRepository
	Logger  *logrus.Logger
	ES      *elasticsearch.Client
	ESIndex string
}

func NewContactService(r repo.ContactRepository, logger *logrus.Logger, es *elasticsearch.Client, esIndex string) *ContactService {
	return &ContactService{Repo: r, Logger: logger, ES: es, ESIndex: esIndex}
}

type ContactInput struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Birthday       time.Time
	AdditionalInfo string
}

func (s *ContactService) Create(ctx context.Context, userID int64, in ContactInput) (*entity.Contact, error) {
	c := &entity.Contact{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		Birthday:       in.Birthday,
		AdditionalInfo: in.AdditionalInfo,
		UserID:         userID,
	}
	if err := s.Repo.Create(ctx, c); err != nil {
		return nil, err
	}
	_ = s.indexContact(ctx, c)
	return c, nil
}

func (s *ContactService) Get(ctx context.Context, userID, id int64) (*entity.Contact, error) {
	c, err := s.Repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrContactNotFound
	}
	return c, nil
}

func (s *ContactService) List(ctx context.Context, userID int64) ([]entity.Contact, error) {
	return s.Repo.List(ctx, userID)
}

func (s *ContactService) Update(ctx context.Context, userID, id int64, in ContactInput) (*entity.Contact, error) {
	c := &entity.Contact{
		ID:             id,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		Birthday:       in.Birthday,
		AdditionalInfo: in.AdditionalInfo,
		UserID:         userID,
	}
	if err := s.Repo.Update(ctx, c); err != nil {
		return nil, ErrContactNotFound
	}
	_ = s.indexContact(ctx, c)
	return c, nil
}

func (s *ContactService) Delete(ctx context.Context, userID, id int64) error {
	ok, err := s.Repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrContactNotFound
	}
	s.deleteFromIndex(ctx, id)
	return nil
}

// Search looks up contacts by name or email. With ES configured the query
// runs there, scoped to the user; otherwise it degrades to the repository.
func (s *ContactService) Search(ctx context.Context, userID int64, query string) ([]entity.Contact, error) {
	if s.ES != nil && s.ESIndex != "" {
		if out, err := s.searchES(ctx, userID, query); err == nil {
			return out, nil
		} else if s.Logger != nil {
			s.Logger.WithError(err).Warn("es search failed, falling back to sql")
		}
	}
	return s.Repo.Search(ctx, userID, query)
}

func (s *ContactService) UpcomingBirthdays(ctx context.Context, userID int64) ([]entity.Contact, error) {
	return s.Repo.UpcomingBirthdays(ctx, userID, 7)
}

func (s *ContactService) indexContact(ctx context.Context, c *entity.Contact) error {
	if s.ES == nil || s.ESIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":         c.ID,
		"user_id":    c.UserID,
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"email":      c.Email,
		"phone":      c.Phone,
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: fmt.Sprint(c.ID), Body: strings.NewReader(string(b)), Refresh: "false"}
	ectx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(ectx, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("contact_id", c.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("contact_id", c.ID).Warn("es index response error")
	}
	return nil
}

func (s *ContactService) deleteFromIndex(ctx context.Context, id int64) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESIndex, DocumentID: fmt.Sprint(id)}
	ectx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(ectx, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("contact_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

func (s *ContactService) searchES(ctx context.Context, userID int64, q string) ([]entity.Contact, error) {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					{"term": map[string]any{"user_id": userID}},
				},
				"must": []map[string]any{
					{"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"first_name", "last_name", "email^2"},
					}},
				},
			},
		},
		"size": 50,
	}
	b, _ := json.Marshal(query)

	ectx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := s.ES.Search(
		s.ES.Search.WithContext(ectx),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ID int64 `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	// Hydrate from the store so responses carry the full record
	out := make([]entity.Contact, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		c, err := s.Repo.GetByID(ctx, h.Source.ID, userID)
		if err != nil {
			return nil, err
		}
		if c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}
