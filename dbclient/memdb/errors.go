// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package memdb

import "fmt"

func errOutOfRange(column, max int) error {
	return fmt.Errorf("memdb: column index %d out of range (have %d)", column, max)
}

func errParamMismatch(got, want int) error {
	return fmt.Errorf("memdb: got %d bound parameters, statement expects %d", got, want)
}
