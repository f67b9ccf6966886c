package recorder

import "HKQuant/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(_ *AnalysisSnapshot) error       { return nil }
func (n *NoopRecorder) RecordOptimization(_ *OptimizationRecord) error { return nil }
func (n *NoopRecorder) RecordHibor(_ []model.HiborRate) error          { return nil }
func (n *NoopRecorder) Close() error                                   { return nil }

func (n *NoopRecorder) RecentOptimizations(_ string, _ int) ([]OptimizationRecord, error) {
	return nil, nil
}
