package datasource

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DescriptorStore provides access to data source descriptors held in a
// metadata store, for deployments that configure data sources through a
// database table rather than (or in addition to) static bootstrap config.
type DescriptorStore interface {
	// GetByName retrieves a descriptor by its registry name.
	GetByName(ctx context.Context, name string) (*Descriptor, error)

	// ListActive returns every descriptor with StatusActive.
	ListActive(ctx context.Context) ([]*Descriptor, error)

	// Create inserts a new descriptor row.
	Create(ctx context.Context, d *Descriptor) error

	// UpdateStatus flips a descriptor's status by name.
	UpdateStatus(ctx context.Context, name string, status Status) error
}

// PostgresDescriptorStore implements DescriptorStore against a metadata
// database table named data_sources.
type PostgresDescriptorStore struct {
	pool *pgxpool.Pool
}

func NewPostgresDescriptorStore(pool *pgxpool.Pool) *PostgresDescriptorStore {
	return &PostgresDescriptorStore{pool: pool}
}

func (s *PostgresDescriptorStore) GetByName(ctx context.Context, name string) (*Descriptor, error) {
	var d Descriptor
	err := pgxscan.Get(ctx, s.pool, &d, `
		SELECT name, driver, host, port, database, "user", password, ssl_mode,
		       status, created_at, updated_at
		FROM data_sources
		WHERE name = $1
	`, name)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get descriptor by name: %w", err)
	}
	return &d, nil
}

func (s *PostgresDescriptorStore) ListActive(ctx context.Context) ([]*Descriptor, error) {
	var descriptors []*Descriptor
	err := pgxscan.Select(ctx, s.pool, &descriptors, `
		SELECT name, driver, host, port, database, "user", password, ssl_mode,
		       status, created_at, updated_at
		FROM data_sources
		WHERE status = $1
		ORDER BY name
	`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active descriptors: %w", err)
	}
	return descriptors, nil
}

func (s *PostgresDescriptorStore) Create(ctx context.Context, d *Descriptor) error {
	if d == nil {
		return fmt.Errorf("descriptor is nil")
	}
	if d.Status == "" {
		d.Status = StatusActive
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO data_sources (name, driver, host, port, database, "user", password, ssl_mode, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, d.Name, d.Driver, d.Host, d.Port, d.Database, d.User, d.Password, d.SSLMode, d.Status)
	if err != nil {
		return fmt.Errorf("create descriptor: %w", err)
	}
	return nil
}

func (s *PostgresDescriptorStore) UpdateStatus(ctx context.Context, name string, status Status) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE data_sources
		SET status = $2, updated_at = now()
		WHERE name = $1
	`, name, status)
	if err != nil {
		return fmt.Errorf("update descriptor status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ DescriptorStore = (*PostgresDescriptorStore)(nil)
