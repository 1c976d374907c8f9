package repo

import (
	"context"

	dom "github.com/adamako/serverless-project/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TodoRepo interface {
	ListByOwner(ctx context.Context, ownerID string) ([]dom.Todo, error)
	Create(ctx context.Context, t dom.Todo) (dom.Todo, error)
	FindByID(ctx context.Context, ownerID, id string) (dom.Todo, error)
	Update(ctx context.Context, ownerID, id string, patch dom.Todo) (dom.Todo, error)
	SetDone(ctx context.Context, ownerID, id string, done bool) (dom.Todo, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type PGTodoRepo struct {
	db *pgxpool.Pool
}

func NewPGTodoRepo(db *pgxpool.Pool) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

func (r *PGTodoRepo) ListByOwner(ctx context.Context, ownerID string) ([]dom.Todo, error) {
	query := `
		SELECT id, owner_id, name, due_date, done, created_at
		FROM todos WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []dom.Todo
	for rows.Next() {
		var t dom.Todo
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Name, &t.DueDate, &t.Done, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PGTodoRepo) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	query := `
		INSERT INTO todos (id, owner_id, name, due_date, done, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, owner_id, name, due_date, done, created_at`
	var out dom.Todo
	err := r.db.QueryRow(ctx, query, t.ID, t.OwnerID, t.Name, t.DueDate, t.Done, t.CreatedAt).Scan(
		&out.ID, &out.OwnerID, &out.Name, &out.DueDate, &out.Done, &out.CreatedAt,
	)
	return out, err
}

func (r *PGTodoRepo) FindByID(ctx context.Context, ownerID, id string) (dom.Todo, error) {
	query := `
		SELECT id, owner_id, name, due_date, done, created_at
		FROM todos WHERE id = $1 AND owner_id = $2`
	var t dom.Todo
	err := r.db.QueryRow(ctx, query, id, ownerID).Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.DueDate, &t.Done, &t.CreatedAt,
	)
	return t, err
}

func (r *PGTodoRepo) Update(ctx context.Context, ownerID, id string, patch dom.Todo) (dom.Todo, error) {
	query := `
		UPDATE todos SET name = $3, due_date = $4, done = $5
		WHERE id = $1 AND owner_id = $2
		RETURNING id, owner_id, name, due_date, done, created_at`
	var t dom.Todo
	err := r.db.QueryRow(ctx, query, id, ownerID, patch.Name, patch.DueDate, patch.Done).Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.DueDate, &t.Done, &t.CreatedAt,
	)
	return t, err
}

func (r *PGTodoRepo) SetDone(ctx context.Context, ownerID, id string, done bool) (dom.Todo, error) {
	query := `
		UPDATE todos SET done = $3
		WHERE id = $1 AND owner_id = $2
		RETURNING id, owner_id, name, due_date, done, created_at`
	var t dom.Todo
	err := r.db.QueryRow(ctx, query, id, ownerID, done).Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.DueDate, &t.Done, &t.CreatedAt,
	)
	return t, err
}

// Delete removes the record. Deleting an id that does not exist (or is owned
// by someone else) is a no-op, not an error.
func (r *PGTodoRepo) Delete(ctx context.Context, ownerID, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return err
}
