// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package memdb

import "context"

// blob is a trivial in-memory Blob: the whole payload is produced by a
// single Read, mirroring how small test fixtures never need Firebird's
// real segmented blob streaming.
type blob struct {
	data []byte
	read bool
}

func (b *blob) Read(ctx context.Context) ([]byte, error) {
	if b.read {
		return nil, nil
	}
	b.read = true
	return b.data, nil
}

func (b *blob) Write(ctx context.Context, p []byte) error {
	b.data = append(b.data, p...)
	return nil
}

func (b *blob) Close(ctx context.Context) error { return nil }
