package render

import (
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// minDetectLen is the shortest input chardet is asked about. Shorter runs are
// repaired to valid UTF-8 instead.
const minDetectLen = 16

// maxPending bounds the bytes held back waiting for a sequence to complete.
const maxPending = 1024

// decoder converts a byte stream to UTF-8 text, carrying incomplete runes and
// escape sequences over to the next chunk.
type decoder struct {
	detector *chardet.Detector
	pending  []byte
}

func newDecoder() *decoder {
	return &decoder{detector: chardet.NewTextDetector()}
}

// decode returns the complete text available after appending chunk.
func (d *decoder) decode(chunk []byte) string {
	data := append(d.pending, chunk...)
	d.pending = nil

	cut := incompleteRuneStart(data)
	cut = min(cut, incompleteEscapeStart(data[:cut]))
	if len(data)-cut > maxPending {
		cut = len(data)
	}
	if cut < len(data) {
		d.pending = append([]byte(nil), data[cut:]...)
		data = data[:cut]
	}

	if utf8.Valid(data) {
		return string(data)
	}
	return d.transcode(data)
}

// transcode decodes text that is not valid UTF-8 using the detected charset.
func (d *decoder) transcode(data []byte) string {
	if len(data) >= minDetectLen {
		if result, err := d.detector.DetectBest(data); err == nil && result != nil {
			if enc, _ := charset.Lookup(strings.ToLower(result.Charset)); enc != nil {
				if out, err := enc.NewDecoder().Bytes(data); err == nil {
					return string(out)
				}
			}
		}
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// incompleteRuneStart returns the index where a trailing partial UTF-8
// sequence begins, or len(data).
func incompleteRuneStart(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		if utf8.FullRune(data[i:]) {
			return len(data)
		}
		return i
	}
	return len(data)
}

// incompleteEscapeStart returns the index where a trailing unterminated
// escape sequence begins, or len(data).
func incompleteEscapeStart(data []byte) int {
	esc := strings.LastIndexByte(string(data), 0x1b)
	if esc < 0 {
		return len(data)
	}
	if escapeComplete(data[esc+1:]) {
		return len(data)
	}
	return esc
}

func escapeComplete(seq []byte) bool {
	if len(seq) == 0 {
		return false
	}
	switch seq[0] {
	case '[':
		// CSI ends with a final byte in 0x40-0x7e.
		for _, b := range seq[1:] {
			if b >= 0x40 && b <= 0x7e {
				return true
			}
		}
		return false
	case ']', 'P', '_', '^':
		// OSC and string sequences end with BEL or ST. ST starts with ESC,
		// which LastIndexByte already split on, so only BEL is seen here.
		return strings.IndexByte(string(seq), 0x07) >= 0
	case '(', ')', '*', '+', '#', '%':
		return len(seq) >= 2
	default:
		return true
	}
}
