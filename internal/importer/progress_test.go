package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chico-rentals/rental-cli/internal/model"
)

func TestLogReporter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := LogReporter(zap.New(core))

	r(Progress{Chunk: 2, TotalChunks: 4, Counts: model.BatchImportResult{SuccessCount: 40, FailedCount: 7, SkippedCount: 3}})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "import progress", entry.Message)
	fields := entry.ContextMap()
	assert.EqualValues(t, 2, fields["chunk"])
	assert.EqualValues(t, 4, fields["total_chunks"])
	assert.EqualValues(t, 40, fields["success"])
	assert.EqualValues(t, 7, fields["failed"])
	assert.EqualValues(t, 3, fields["skipped"])
}

func TestTee(t *testing.T) {
	var a, b []int
	r := Tee(func(p Progress) { a = append(a, p.Chunk) }, nil, func(p Progress) { b = append(b, p.Chunk) })
	r(Progress{Chunk: 1})
	r(Progress{Chunk: 2})
	assert.Equal(t, []int{1, 2}, a)
	assert.Equal(t, []int{1, 2}, b)
}
