// Package datasource resolves data source names to pooled tx.DataSource
// instances, playing the role of the "host application metadata registry"
// tx.Manager consults through the tx.MetadataProvider contract.
package datasource

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a registered data source descriptor.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// Descriptor is a data source's connection metadata as stored in the
// metadata store, before a live tx.DataSource is built from it.
type Descriptor struct {
	Name      string `db:"name"`
	Driver    string `db:"driver"`
	Host      string `db:"host"`
	Port      int    `db:"port"`
	Database  string `db:"database"`
	User      string `db:"user"`
	Password  string `db:"password"`
	SSLMode   string `db:"ssl_mode"`

	Status    Status    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsActive reports whether this descriptor may be used to build a live
// data source.
func (d *Descriptor) IsActive() bool {
	return d.Status == StatusActive
}

// DSN builds a PostgreSQL connection string for this descriptor.
func (d *Descriptor) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, sslMode,
	)
}

// Validate checks that a descriptor carries enough information to build a
// connection, mirroring the bootstrap config checks of §6.4: a type/driver
// and, for non-embedded engines, a host plus database name.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.Driver == "" {
		return fmt.Errorf("driver is required")
	}
	if d.Host == "" {
		return fmt.Errorf("host is required")
	}
	if d.Database == "" {
		return fmt.Errorf("database is required")
	}
	return nil
}
