package decoder

import (
	"context"
	"strings"
	"time"
)

type Symbology string

const (
	SymbologyUnknown Symbology = ""
	SymbologyCode128 Symbology = "code128"
	SymbologyCode39  Symbology = "code39"
	SymbologyEAN8    Symbology = "ean8"
	SymbologyEAN13   Symbology = "ean13"
)

var supportedSymbologies = map[Symbology]bool{
	SymbologyCode128: true,
	SymbologyCode39:  true,
	SymbologyEAN8:    true,
	SymbologyEAN13:   true,
}

// Supported reports whether s is enabled on the station. Sources that do not
// report a symbology are trusted.
func (s Symbology) Supported() bool {
	return s == SymbologyUnknown || supportedSymbologies[s]
}

// ScanEvent is one decoder outcome: a code, or a failure description in Err.
type ScanEvent struct {
	Code      string    `json:"code,omitempty"`
	Symbology Symbology `json:"symbology,omitempty"`
	Source    string    `json:"source"`
	Err       string    `json:"error,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}

func (e ScanEvent) Failed() bool {
	return e.Err != ""
}

// Source produces scan events until ctx is done or the device goes away.
type Source interface {
	Name() string
	Run(ctx context.Context, emit func(ScanEvent)) error
}

// CleanCode strips the terminators and padding scanners append to a payload.
func CleanCode(raw []byte) string {
	return strings.Trim(string(raw), "\x00\r\n\t ")
}
