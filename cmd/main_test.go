package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunWithLoggerReportsFailure(t *testing.T) {
	var buf bytes.Buffer
	code := runWithLogger(&buf, func() error { return errors.New("invalid PORT 0") })

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "giveaway: invalid PORT 0")

	assert.Equal(t, 0, runWithLogger(&bytes.Buffer{}, func() error { return nil }))
}
