package services

import (
	"regexp"
)

var optionLabelPrefix = regexp.MustCompile(`^\s*[A-Za-z]\s*[.)\-]\s*`)

// NormalizeOptions relabels options as "A. ", "B. ", ... in their original order,
// dropping any label the source text already carried.
func NormalizeOptions(options []string) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = optionLabel(i) + ". " + optionLabelPrefix.ReplaceAllString(opt, "")
	}
	return out
}

// optionLabel returns A..Z, then AA, AB, ...
func optionLabel(i int) string {
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}
