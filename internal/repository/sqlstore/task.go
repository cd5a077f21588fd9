package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/task-manager/internal/domain"
)

const taskColumns = `id, owner_id, description, completed, created_at, updated_at`

// sortColumns maps the sortable task fields onto columns. Anything else is
// rejected before it can reach the query text.
var sortColumns = map[domain.TaskSortField]string{
	domain.TaskSortDescription: "description",
	domain.TaskSortCompleted:   "completed",
	domain.TaskSortCreatedAt:   "created_at",
	domain.TaskSortUpdatedAt:   "updated_at",
}

// TaskRepository implements domain.TaskRepository.
type TaskRepository struct {
	db      *sql.DB
	dialect dialect
}

var _ domain.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a new SQL-backed TaskRepository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db.SqlDB, dialect: db.dialect}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`INSERT INTO tasks (id, owner_id, description, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		task.ID, task.OwnerID, task.Description, task.Completed, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

func (r *TaskRepository) GetByOwner(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner_id = ?`), id, ownerID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string, q domain.TaskQuery) ([]domain.Task, error) {
	query, args, err := r.buildListQuery(ownerID, q)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) buildListQuery(ownerID string, q domain.TaskQuery) (string, []any, error) {
	var b strings.Builder
	args := []any{ownerID}

	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ?`)
	if q.Completed != nil {
		b.WriteString(` AND completed = ?`)
		args = append(args, *q.Completed)
	}

	b.WriteString(` ORDER BY `)
	if q.SortBy != "" {
		col, ok := sortColumns[q.SortBy]
		if !ok {
			return "", nil, fmt.Errorf("%w: cannot sort by %q", domain.ErrInvalidInput, q.SortBy)
		}
		b.WriteString(col)
		if q.SortDesc {
			b.WriteString(` DESC`)
		} else {
			b.WriteString(` ASC`)
		}
		b.WriteString(`, `)
	}
	// Insertion order breaks ties.
	b.WriteString(`seq ASC`)

	if q.Limit < 0 || q.Skip < 0 {
		return "", nil, fmt.Errorf("%w: limit and skip must not be negative", domain.ErrInvalidInput)
	}
	if q.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	} else if q.Skip > 0 && r.dialect == dialectSQLite {
		// SQLite only accepts OFFSET after a LIMIT clause.
		b.WriteString(` LIMIT -1`)
	}
	if q.Skip > 0 {
		b.WriteString(` OFFSET ?`)
		args = append(args, q.Skip)
	}

	return r.dialect.rebind(b.String()), args, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`UPDATE tasks SET description = ?, completed = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`),
		task.Description, task.Completed, now, task.ID, task.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	task.UpdatedAt = now
	return nil
}

func (r *TaskRepository) DeleteByOwner(ctx context.Context, id, ownerID string) error {
	result, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`DELETE FROM tasks WHERE id = ? AND owner_id = ?`), id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireAffected(result)
}

func (r *TaskRepository) DeleteAllByOwner(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`DELETE FROM tasks WHERE owner_id = ?`), ownerID)
	if err != nil {
		return fmt.Errorf("delete tasks by owner: %w", err)
	}
	return nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	task := &domain.Task{}
	err := row.Scan(&task.ID, &task.OwnerID, &task.Description, &task.Completed,
		&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return task, nil
}
