// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package memdb

import (
	"context"

	"github.com/fireasync/fbasync/dbclient"
)

// Database is a dbclient.Database backed by an Engine. Several Databases
// can share one Engine to simulate multiple connections to the same
// server/file, the way Firebird allows.
type Database struct {
	eng    *Engine
	params dbclient.ConnParams
	open   bool
}

var _ dbclient.Database = (*Database)(nil)

// NewDatabase wraps eng as a connectable Database handle. Constructing
// it performs no I/O; the split between construction and Open mirrors
// Connection's own Create/Open separation.
func NewDatabase(eng *Engine) *Database {
	return &Database{eng: eng}
}

func (d *Database) Open(ctx context.Context, params dbclient.ConnParams) error {
	d.params = params
	d.open = true
	return nil
}

func (d *Database) Close(ctx context.Context) error {
	d.open = false
	return nil
}

func (d *Database) Info(ctx context.Context, field dbclient.InfoField) (string, error) {
	switch field {
	case dbclient.InfoServer:
		return d.params.Server, nil
	case dbclient.InfoDatabase:
		return d.params.Database, nil
	case dbclient.InfoUser:
		return d.params.User, nil
	case dbclient.InfoPassword:
		return d.params.Password, nil
	case dbclient.InfoCharacterSet:
		return d.params.CharacterSet, nil
	case dbclient.InfoRole:
		return d.params.Role, nil
	case dbclient.InfoCreateParams:
		return d.params.CreateParams, nil
	default:
		return "", nil
	}
}

func (d *Database) ConnectedUsers(ctx context.Context) ([]string, error) {
	d.eng.mu.Lock()
	defer d.eng.mu.Unlock()
	users := make([]string, len(d.eng.users))
	copy(users, d.eng.users)
	return users, nil
}

func (d *Database) Drop(ctx context.Context) error {
	d.eng.mu.Lock()
	d.eng.tables = make(map[string]*table)
	d.eng.mu.Unlock()
	return nil
}

func (d *Database) ServerVersion() string { return d.eng.version }

func (d *Database) NewTransaction(mode dbclient.TransactionMode, isolation dbclient.Isolation, lock dbclient.LockResolution, reservations []dbclient.Reservation) (dbclient.Transaction, error) {
	return &transaction{
		db:           d,
		mode:         mode,
		isolation:    isolation,
		lock:         lock,
		reservations: append([]dbclient.Reservation(nil), reservations...),
	}, nil
}
