package service

import (
	"fmt"
	"strings"
)

// SequenceFormat renders bill ids as human readable codes, e.g. IL00042.
type SequenceFormat struct {
	Prefix string
	Width  int
}

// DefaultSequenceFormat is the store's IL + five digit scheme.
var DefaultSequenceFormat = SequenceFormat{Prefix: "IL", Width: 5}

// Code derives the sequence code of a bill id. Ids wider than Width are not truncated.
func (f SequenceFormat) Code(id int64) string {
	return fmt.Sprintf("%s%0*d", f.Prefix, f.Width, id)
}

// NormalizeSequenceCode trims and upper-cases user input before lookup.
func NormalizeSequenceCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
