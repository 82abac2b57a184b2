// Package ch provides a thin clickhouse client used as an append-only audit sink
package ch

import (
	"context"
	"errors"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse client
type Config struct {
	URL        string
	ClientName string
	ClientTag  string
}

// Rows is the minimal result set iteration for ch
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
	Columns() []string
}

// CH is the clickhouse connectivity seam
type CH struct {
	conn driver.Conn
}

// Open parses the DSN and dials clickhouse
func Open(ctx context.Context, cfg Config) (*CH, error) {
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, err
	}
	opts.ClientInfo = BuildClientInfo(cfg.ClientName, cfg.ClientTag)
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &CH{conn: conn}, nil
}

// Insert appends rows to table; cols names the target columns in row order
func (c *CH) Insert(ctx context.Context, table string, cols []string, rows [][]any) error {
	if c == nil || c.conn == nil {
		return errors.New("ch: nil client")
	}
	if len(rows) == 0 {
		return nil
	}
	stmt := "INSERT INTO " + table
	if len(cols) > 0 {
		stmt += " ("
		for i, col := range cols {
			if i > 0 {
				stmt += ", "
			}
			stmt += col
		}
		stmt += ")"
	}
	batch, err := c.conn.PrepareBatch(ctx, stmt)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := batch.Append(r...); err != nil {
			return err
		}
	}
	return batch.Send()
}

// Query runs a query and returns ch.Rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if c == nil || c.conn == nil {
		return nil, errors.New("ch: nil client")
	}
	return c.conn.Query(ctx, sql, args...)
}

// Exec runs a statement with no result set; used for DDL
func (c *CH) Exec(ctx context.Context, sql string, args ...any) error {
	if c == nil || c.conn == nil {
		return errors.New("ch: nil client")
	}
	return c.conn.Exec(ctx, sql, args...)
}

// Ping verifies connectivity
func (c *CH) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return errors.New("ch: nil client")
	}
	return c.conn.Ping(ctx)
}

// Close closes resources
func (c *CH) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
