package cart

// Recorder receives cart resolution events, e.g. to export metrics.
type Recorder interface {
	CartResolved(strategy StrategyKind, created bool)
	TokenIssued(strategy StrategyKind)
	CartMerged(moved, combined int)
}

type NopRecorder struct{}

var _ Recorder = NopRecorder{}

func (NopRecorder) CartResolved(StrategyKind, bool) {}
func (NopRecorder) TokenIssued(StrategyKind)        {}
func (NopRecorder) CartMerged(int, int)             {}
