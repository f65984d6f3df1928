// Package patcher makes sure a marker line is present in a keyword-opened
// block of a line oriented text fragment (SII manifest).
package patcher

import (
	"strings"
)

const (
	DefaultKeyword = "mod_package"
	DefaultMarker  = "    mp_mod_optional: true"

	closeDelimiter = "}"
)

// Patcher inserts Marker right before closing delimiter of the first block
// opened by a line starting with Keyword. No nesting is supported: the first
// "}" after the keyword line closes the block.
type Patcher struct {
	Keyword string
	Marker  string
}

// New returns patcher with defaults for empty parameters.
func New(keyword, marker string) *Patcher {
	if len(keyword) == 0 {
		keyword = DefaultKeyword
	}
	if len(marker) == 0 {
		marker = DefaultMarker
	}
	return &Patcher{Keyword: keyword, Marker: marker}
}

// HasMarker reports if marker is already present anywhere in the lines.
func (p *Patcher) HasMarker(lines []string) bool {
	m := strings.TrimSpace(p.Marker)
	for _, line := range lines {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// insertionPoint returns index of the line marker must be inserted before.
// False means there is nothing to do: either marker is present already or
// there is no complete block.
func (p *Patcher) insertionPoint(lines []string) (int, bool) {
	if p.HasMarker(lines) {
		return 0, false
	}
	inside := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case !inside && strings.HasPrefix(trimmed, p.Keyword):
			inside = true
		case inside && trimmed == closeDelimiter:
			return i, true
		}
	}
	return 0, false
}

// Patch returns lines with marker inserted once and true, or input lines
// unchanged and false when marker is already present or no block was found.
// Input slice is never modified.
func (p *Patcher) Patch(lines []string) ([]string, bool) {
	at, ok := p.insertionPoint(lines)
	if !ok {
		return lines, false
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:at]...)
	out = append(out, p.Marker)
	out = append(out, lines[at:]...)
	return out, true
}

// PatchBytes decodes fragment, patches it and encodes it back. When nothing
// changed original data is returned as is.
func (p *Patcher) PatchBytes(data []byte) ([]byte, bool, error) {
	frag, err := Decode(data)
	if err != nil {
		return nil, false, err
	}
	if !frag.Apply(p) {
		return data, false, nil
	}
	out, err := frag.Encode()
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
