// Package torch abstracts the camera light so the scan session can be driven
// without hardware.
package torch

import (
	"context"
	"errors"
	"sync"
)

// Torch is the camera/torch collaborator.
type Torch interface {
	IsTorchAvailable() bool
	SetTorch(ctx context.Context, on bool) error
}

var ErrUnavailable = errors.New("torch not available")

// Noop is used when the station has no light attached.
type Noop struct{}

func (Noop) IsTorchAvailable() bool { return false }

func (Noop) SetTorch(context.Context, bool) error { return ErrUnavailable }

// Fake records calls. Err, when set, is returned by SetTorch.
type Fake struct {
	mu        sync.Mutex
	Available bool
	Err       error
	On        bool
	Calls     []bool
}

func (f *Fake) IsTorchAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Available
}

func (f *Fake) SetTorch(_ context.Context, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, on)
	if f.Err != nil {
		return f.Err
	}
	f.On = on
	return nil
}
