package utils

import (
	"regexp"
	"strings"
)

var e164Re = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

var phoneStrip = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

// NormalizePhone strips separators and checks the E.164 shape
// (e.g. +8201017778484). Returns ok=false for anything else.
func NormalizePhone(raw string) (string, bool) {
	p := phoneStrip.Replace(strings.TrimSpace(raw))
	if !e164Re.MatchString(p) {
		return "", false
	}
	return p, true
}
