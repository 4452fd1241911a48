package decoder

import (
	"context"
	"time"

	"barcode-lookup/internal/constant"
)

// SimulatedSource emits the same code on every tick, for stations without a
// scanner attached.
type SimulatedSource struct {
	Code      string
	Symbology Symbology
	Interval  time.Duration
}

func NewSimulatedSource(code string, interval time.Duration) *SimulatedSource {
	if code == "" {
		code = constant.SimulatedDefaultCode
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &SimulatedSource{Code: code, Symbology: SymbologyCode128, Interval: interval}
}

func (s *SimulatedSource) Name() string {
	return "simulated"
}

func (s *SimulatedSource) Run(ctx context.Context, emit func(ScanEvent)) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			emit(ScanEvent{Code: s.Code, Symbology: s.Symbology, Source: s.Name(), ScannedAt: time.Now()})
		}
	}
}
