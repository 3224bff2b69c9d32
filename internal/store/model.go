package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a model name is already registered.
	ErrDuplicate = errors.New("already exists")
)

// Model is a registered classifier artifact together with the label catalog
// that names its classes.
type Model struct {
	ID          string
	Name        string
	ModelPath   string
	LabelsPath  string
	Description string
	CreatedAt   time.Time
}

// ModelRepository provides CRUD operations for registered models.
type ModelRepository struct {
	db *sql.DB
}

// Models returns the model repository for this store.
func (s *Store) Models() *ModelRepository {
	return &ModelRepository{db: s.db}
}

// Create registers m. An empty ID is filled with a new UUID.
func (r *ModelRepository) Create(m *Model) error {
	if m.Name == "" {
		return errors.New("model name is required")
	}
	if m.ModelPath == "" || m.LabelsPath == "" {
		return errors.New("model and labels paths are required")
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO models (id, name, model_path, labels_path, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.ModelPath, m.LabelsPath, m.Description, m.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("model %q: %w", m.Name, ErrDuplicate)
		}
		return err
	}

	return nil
}

// GetByID retrieves a model by its ID.
func (r *ModelRepository) GetByID(id string) (*Model, error) {
	return r.getOne(`SELECT id, name, model_path, labels_path, description, created_at
		FROM models WHERE id = ?`, id)
}

// GetByName retrieves a model by its name.
func (r *ModelRepository) GetByName(name string) (*Model, error) {
	return r.getOne(`SELECT id, name, model_path, labels_path, description, created_at
		FROM models WHERE name = ?`, name)
}

func (r *ModelRepository) getOne(query string, arg string) (*Model, error) {
	m := &Model{}
	err := r.db.QueryRow(query, arg).Scan(
		&m.ID, &m.Name, &m.ModelPath, &m.LabelsPath, &m.Description, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// List retrieves all registered models ordered by name.
func (r *ModelRepository) List() ([]*Model, error) {
	rows, err := r.db.Query(
		`SELECT id, name, model_path, labels_path, description, created_at
		 FROM models ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []*Model
	for rows.Next() {
		m := &Model{}
		if err := rows.Scan(&m.ID, &m.Name, &m.ModelPath, &m.LabelsPath, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	return models, rows.Err()
}

// Delete removes a model by its ID.
func (r *ModelRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
