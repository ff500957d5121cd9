// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

// Command fbshell is a small demo client over the fbasync root package.
// Its subcommands open a Connection to an in-memory database and either
// seed a table and print one lazily materialized row (demo), print the
// connection's info fields and worker counters (stats), or expose those
// counters on a Prometheus /metrics endpoint (serve).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
