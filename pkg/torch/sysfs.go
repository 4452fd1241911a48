package torch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// SysfsLED drives a Linux LED class device, e.g. /sys/class/leds/white:flash.
type SysfsLED struct {
	Dir string
	mu  sync.Mutex
}

func NewSysfsLED(dir string) *SysfsLED {
	return &SysfsLED{Dir: dir}
}

func (l *SysfsLED) IsTorchAvailable() bool {
	if l.Dir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(l.Dir, "brightness"))
	return err == nil && !info.IsDir()
}

func (l *SysfsLED) SetTorch(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	level := 0
	if on {
		maxLevel, err := l.maxBrightness()
		if err != nil {
			return err
		}
		level = maxLevel
	}

	path := filepath.Join(l.Dir, "brightness")
	if err := os.WriteFile(path, []byte(strconv.Itoa(level)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// maxBrightness falls back to 1 when the device does not expose a maximum.
func (l *SysfsLED) maxBrightness() (int, error) {
	raw, err := os.ReadFile(filepath.Join(l.Dir, "max_brightness"))
	if os.IsNotExist(err) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read max_brightness: %w", err)
	}
	maxLevel, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse max_brightness: %w", err)
	}
	return maxLevel, nil
}
