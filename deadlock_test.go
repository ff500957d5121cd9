// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fireasync/fbasync/internal/engine"
)

func TestDeadlockTrackerLogsAndCountsTimeouts(t *testing.T) {
	var buf bytes.Buffer
	var d deadlockTracker
	d.init(zerolog.New(&buf))

	cmd := engine.NewSync(engine.CmdConnInfo)
	_, err := d.awaitSync("Test.Op", cmd, 10*time.Millisecond)
	require.Error(t, err)
	require.Equal(t, uint64(1), d.TimeoutCount())
	require.Contains(t, buf.String(), "DeadlockSuspected")
	require.Contains(t, buf.String(), `"timeout_count":1`)
	cmd.Complete(&engine.Result{})

	cmd2 := engine.NewSync(engine.CmdConnInfo)
	_, err = d.awaitSync("Test.Op", cmd2, 10*time.Millisecond)
	require.Error(t, err)
	require.Equal(t, uint64(2), d.TimeoutCount())
	require.Contains(t, buf.String(), `"timeout_count":2`)
	cmd2.Complete(&engine.Result{})

	require.Eventually(t, func() bool {
		dl := d.LastDeadlock()
		return dl != nil && dl.Cause == nil
	}, time.Second, 5*time.Millisecond)
}
