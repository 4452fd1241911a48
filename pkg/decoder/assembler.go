package decoder

// assembler turns raw endpoint packets into complete codes.
type assembler interface {
	Feed(packet []byte) []string
}

func newAssembler(mode ScannerMode) assembler {
	switch mode {
	case ScannerModeHIDKeyboardEmulation:
		return &keyboardAssembler{}
	case ScannerModeCOMEmulation:
		return &lineAssembler{}
	default:
		return hidPOSAssembler{}
	}
}

// hidPOSAssembler handles scanners that deliver one code per report.
// Reports may carry a report id 0x02 and a length byte before the data.
type hidPOSAssembler struct{}

func (hidPOSAssembler) Feed(packet []byte) []string {
	data := packet
	if len(packet) >= 2 && packet[0] == 0x02 && int(packet[1]) <= len(packet)-2 {
		data = packet[2 : 2+int(packet[1])]
	}
	if code := CleanCode(data); code != "" {
		return []string{code}
	}
	return nil
}

// lineAssembler buffers serial bytes until CR or LF.
type lineAssembler struct {
	buf []byte
}

func (a *lineAssembler) Feed(packet []byte) []string {
	var codes []string
	for _, b := range packet {
		if b != '\r' && b != '\n' {
			a.buf = append(a.buf, b)
			continue
		}
		if code := CleanCode(a.buf); code != "" {
			codes = append(codes, code)
		}
		a.buf = a.buf[:0]
	}
	return codes
}

// keyboardAssembler decodes 8 byte HID boot keyboard reports
// (modifiers, reserved, six key codes) until Enter.
type keyboardAssembler struct {
	buf     []rune
	lastKey byte
}

const (
	hidKeyEnter      = 0x28
	hidModLeftShift  = 0x02
	hidModRightShift = 0x20
)

func (a *keyboardAssembler) Feed(report []byte) []string {
	if len(report) < 3 {
		return nil
	}
	key := report[2]
	// Scanners send a press report followed by an all-zero release report;
	// a repeated key code without a release in between is the same press.
	if key == 0 || key == a.lastKey {
		a.lastKey = key
		return nil
	}
	a.lastKey = key

	if key == hidKeyEnter {
		code := string(a.buf)
		a.buf = a.buf[:0]
		if code == "" {
			return nil
		}
		return []string{code}
	}

	shift := report[0]&(hidModLeftShift|hidModRightShift) != 0
	if r, ok := hidKeyRune(key, shift); ok {
		a.buf = append(a.buf, r)
	}
	return nil
}

// hidPunctuation maps key codes to their unshifted and shifted runes.
var hidPunctuation = map[byte][2]rune{
	0x2c: {' ', ' '},
	0x2d: {'-', '_'},
	0x2e: {'=', '+'},
	0x33: {';', ':'},
	0x36: {',', '<'},
	0x37: {'.', '>'},
	0x38: {'/', '?'},
}

func hidKeyRune(key byte, shift bool) (rune, bool) {
	switch {
	case key >= 0x04 && key <= 0x1d:
		if shift {
			return rune('A' + key - 0x04), true
		}
		return rune('a' + key - 0x04), true
	case key >= 0x1e && key <= 0x26:
		if shift {
			return rune("!@#$%^&*("[key-0x1e]), true
		}
		return rune('1' + key - 0x1e), true
	case key == 0x27:
		if shift {
			return ')', true
		}
		return '0', true
	}

	if pair, ok := hidPunctuation[key]; ok {
		if shift {
			return pair[1], true
		}
		return pair[0], true
	}
	return 0, false
}
