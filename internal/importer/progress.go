package importer

import (
	"go.uber.org/zap"

	"github.com/chico-rentals/rental-cli/internal/model"
)

// Progress is emitted after each chunk. Counts carries no error log.
type Progress struct {
	Chunk       int                     `json:"chunk"`
	TotalChunks int                     `json:"total_chunks"`
	Counts      model.BatchImportResult `json:"counts"`
}

// Reporter receives progress. It is called from the goroutine running
// Import, never concurrently.
type Reporter func(Progress)

// LogReporter logs each chunk at info level.
func LogReporter(log *zap.Logger) Reporter {
	return func(p Progress) {
		log.Info("import progress",
			zap.Int("chunk", p.Chunk),
			zap.Int("total_chunks", p.TotalChunks),
			zap.Int("success", p.Counts.SuccessCount),
			zap.Int("failed", p.Counts.FailedCount),
			zap.Int("skipped", p.Counts.SkippedCount),
		)
	}
}

// Tee fans a progress event out to every non-nil reporter.
func Tee(reporters ...Reporter) Reporter {
	return func(p Progress) {
		for _, r := range reporters {
			if r != nil {
				r(p)
			}
		}
	}
}
