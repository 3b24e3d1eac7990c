package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	got := format([]byte(`{"type":"notification","message":"Series added: Dark (by boss)","timestamp":1700000000123}`))
	assert.Equal(t, "[2023-11-14T22:13:20.123Z] Series added: Dark (by boss)", got)

	assert.Equal(t, "garbage", format([]byte("garbage")))
}
