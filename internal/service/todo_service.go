package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adamako/serverless-project/internal/cache"
	dom "github.com/adamako/serverless-project/internal/domain"
	"github.com/adamako/serverless-project/internal/repo"
	"github.com/adamako/serverless-project/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidName = errors.New("name is required")
)

// TodoService orchestrates the repo, the attachment issuer and the cache.
// All operations are scoped to the verified owner; a todo belonging to
// someone else behaves exactly like a missing one.
type TodoService struct {
	repo        repo.TodoRepo
	attachments storage.AttachmentIssuer
	cache       *cache.TodoCache
	sf          singleflight.Group
}

// NewTodoService creates a TodoService. If c is nil, caching is disabled.
func NewTodoService(r repo.TodoRepo, att storage.AttachmentIssuer, c *cache.TodoCache) *TodoService {
	return &TodoService{repo: r, attachments: att, cache: c}
}

// Create persists a new todo for ownerID. The id is assigned here and done
// always starts false.
func (s *TodoService) Create(ctx context.Context, ownerID, name, dueDate string) (dom.Todo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return dom.Todo{}, ErrInvalidName
	}

	t, err := s.repo.Create(ctx, dom.Todo{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		DueDate:   dueDate,
		Done:      false,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, ownerID)
	return t, nil
}

// List returns the owner's todos, each enriched with a signed download URL
// when its attachment object exists. The un-enriched list may be served from
// cache; attachment URLs are always signed fresh.
func (s *TodoService) List(ctx context.Context, ownerID string) ([]dom.Todo, error) {
	list, err := s.listRaw(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		url, err := s.attachments.DownloadURLIfExists(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].AttachmentURL = url
	}
	return list, nil
}

func (s *TodoService) listRaw(ctx context.Context, ownerID string) ([]dom.Todo, error) {
	if s.cache != nil {
		v, err, _ := s.sf.Do("list:"+ownerID, func() (interface{}, error) {
			if list, err := s.cache.GetList(ctx, ownerID); err == nil && list != nil {
				return list, nil
			}
			list, err := s.repo.ListByOwner(ctx, ownerID)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetList(ctx, ownerID, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		// Duplicate callers share the flight's slice; List mutates entries
		// while enriching, so each caller gets its own copy.
		return append([]dom.Todo(nil), v.([]dom.Todo)...), nil
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

// GetByID returns a single todo, enriched like List.
func (s *TodoService) GetByID(ctx context.Context, ownerID, id string) (dom.Todo, error) {
	t, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	url, err := s.attachments.DownloadURLIfExists(ctx, t.ID)
	if err != nil {
		return dom.Todo{}, err
	}
	t.AttachmentURL = url
	return t, nil
}

// Update applies a partial update to name, dueDate and done. Updating a
// missing id reports ErrNotFound rather than silently succeeding.
func (s *TodoService) Update(ctx context.Context, ownerID, id string, name *string, dueDate *string, done *bool) (dom.Todo, error) {
	existing, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	patch := existing
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return dom.Todo{}, ErrInvalidName
		}
		patch.Name = trimmed
	}
	if dueDate != nil {
		patch.DueDate = *dueDate
	}
	if done != nil {
		patch.Done = *done
	}
	t, err := s.repo.Update(ctx, ownerID, id, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, ownerID)
	return t, nil
}

// Complete transitions a todo from pending to complete.
func (s *TodoService) Complete(ctx context.Context, ownerID, id string) (dom.Todo, error) {
	t, err := s.repo.SetDone(ctx, ownerID, id, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, ownerID)
	return t, nil
}

// Delete removes the todo. The existence check lives here so handlers can
// answer 404 before anything is deleted; the repo delete itself is idempotent.
func (s *TodoService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.repo.FindByID(ctx, ownerID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.invalidateCache(ctx, ownerID)
	return nil
}

// AttachmentUploadURL returns a signed upload URL for an existing todo.
// The object itself does not have to exist; the todo does.
func (s *TodoService) AttachmentUploadURL(ctx context.Context, ownerID, id string) (string, error) {
	if _, err := s.repo.FindByID(ctx, ownerID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return s.attachments.UploadURL(ctx, id)
}

func (s *TodoService) invalidateCache(ctx context.Context, ownerID string) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, ownerID)
	}
}
