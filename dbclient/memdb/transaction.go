// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package memdb

import (
	"context"
	"errors"

	"github.com/fireasync/fbasync/dbclient"
)

type transaction struct {
	db           *Database
	mode         dbclient.TransactionMode
	isolation    dbclient.Isolation
	lock         dbclient.LockResolution
	reservations []dbclient.Reservation
	started      bool
}

var _ dbclient.Transaction = (*transaction)(nil)

func (t *transaction) AddReservation(r dbclient.Reservation) error {
	if t.started {
		return errors.New("memdb: cannot add reservation after start")
	}
	t.reservations = append(t.reservations, r)
	return nil
}

func (t *transaction) Start(ctx context.Context) error {
	t.started = true
	return nil
}

func (t *transaction) Commit(ctx context.Context) error {
	if !t.started {
		return errors.New("memdb: transaction not active")
	}
	t.started = false
	return nil
}

func (t *transaction) CommitRetaining(ctx context.Context) error {
	if !t.started {
		return errors.New("memdb: transaction not active")
	}
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	t.started = false
	return nil
}

func (t *transaction) IsActive() bool { return t.started }

func (t *transaction) Prepare(ctx context.Context, sql string) (dbclient.Statement, error) {
	return compile(t.db.eng, sql)
}
