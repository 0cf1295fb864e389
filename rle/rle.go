// Package rle implements the run-length transform applied to compressed entries.
//
// A run of n > 1 identical characters c is written as the decimal digits of n followed by c. A run
// of one is written as c alone. Digits in the source text cannot be told apart from run prefixes,
// so text containing ASCII digits does not survive Encode followed by Decode. Both directions work
// on runes, so bytes that are not valid UTF-8 come back as U+FFFD. The format has no escaping;
// changing that would change what is already stored.
package rle

import (
	"strconv"
	"strings"
)

// Codec is a reversible text transform.
type Codec interface {
	// Encode transforms plain text into its stored form.
	Encode(text string) string
	// Decode transforms a stored form back into plain text.
	Decode(text string) string
	// Name identifies the codec in logs.
	Name() string
}

// RunLength is the run-length Codec.
var RunLength Codec = runLength{}

type runLength struct{}

func (runLength) Encode(text string) string { return Encode(text) }
func (runLength) Decode(text string) string { return Decode(text) }
func (runLength) Name() string              { return "rle" }

// Encode groups maximal runs of one repeated character and writes each as count+char, omitting
// the count for runs of one.
func Encode(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))

	var run rune
	n := 0
	flush := func() {
		if n > 1 {
			b.WriteString(strconv.Itoa(n))
		}
		b.WriteRune(run)
	}

	for _, c := range text {
		if n > 0 && c == run {
			n++
			continue
		}
		if n > 0 {
			flush()
		}
		run = c
		n = 1
	}
	flush()

	return b.String()
}

// Decode expands count+char pairs. A character with no pending count is emitted once, as is a
// character preceded by a zero count. Counts above 1<<24 are capped there, so a single run never
// expands past that many characters. Digits left over at the end of the input are dropped.
func Decode(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))

	count := 0
	for _, c := range text {
		if isDigit(c) {
			count = count*10 + int(c-'0')
			if count > maxCount {
				count = maxCount
			}
			continue
		}
		times := 1
		if count > 1 {
			times = count
		}
		for i := 0; i < times; i++ {
			b.WriteRune(c)
		}
		count = 0
	}

	return b.String()
}

// HasDigits reports whether text contains ASCII digits, i.e. whether Decode(Encode(text)) may
// differ from text.
func HasDigits(text string) bool {
	return strings.IndexFunc(text, isDigit) >= 0
}

// maxCount caps a single decoded run.
const maxCount = 1 << 24

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
