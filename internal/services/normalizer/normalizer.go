// Package normalizer parses raw external item names into a normalized
// (base name, skin name, variant) form. The external source has no stable
// naming convention: skin names may be wrapped in «guillemets» or straight
// quotes, multi-word weapon names are not delimited, and the StatTrack
// variant marker can appear anywhere in the string.
package normalizer

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// statTrackMarker is the variant token the source injects into item names.
const statTrackMarker = "stattrack"

// compoundBases are multi-word base names that would otherwise be split at
// the first space. Checked as literal prefixes, longest first.
var compoundBases = []string{
	"M9 Bayonet", "Dual Daggers", "Desert Eagle", "M40 Pro", "M4 A1",
	"Tec-9", "FabM", "SM1014", "SPAS", "MAC-10", "UMP-45", "MP5", "FN FAL",
	"Akimbo Uzi", "G22", "USP", "P350", "Five Seven",
}

var quotedName = regexp.MustCompile(`^(.*?)\s*[«"](.*?)[»"](.*)$`)

var ErrEmptyName = errors.New("empty item name")

// Result is the normalized form of one raw name.
type Result struct {
	BaseName    string
	SkinName    string
	IsStatTrack bool
	FullName    string // cleaned full name, quotes and marker removed
}

func init() {
	sort.Slice(compoundBases, func(i, j int) bool {
		return len(compoundBases[i]) > len(compoundBases[j])
	})
}

// Normalize parses a raw external item name.
func Normalize(rawName string) (Result, error) {
	rawName = strings.TrimSpace(rawName)
	if rawName == "" {
		return Result{}, ErrEmptyName
	}

	cleaned, isStatTrack := stripStatTrack(rawName)
	if cleaned == "" {
		return Result{}, ErrEmptyName
	}

	if m := quotedName.FindStringSubmatch(cleaned); m != nil {
		base := strings.TrimSpace(m[1])
		skin := strings.TrimSpace(m[2])
		suffix := strings.TrimSpace(m[3])
		if suffix != "" {
			skin = skin + " " + suffix
		}
		return Result{
			BaseName:    base,
			SkinName:    skin,
			IsStatTrack: isStatTrack,
			FullName:    stripQuotes(cleaned),
		}, nil
	}

	// A stray quote without a closed pair: treat the whole remainder as the
	// base name.
	if strings.ContainsAny(cleaned, `«»"`) {
		base := strings.TrimSpace(stripQuotes(cleaned))
		return Result{
			BaseName:    base,
			IsStatTrack: isStatTrack,
			FullName:    base,
		}, nil
	}

	for _, compound := range compoundBases {
		if len(cleaned) >= len(compound) && strings.EqualFold(cleaned[:len(compound)], compound) {
			skin := strings.TrimSpace(cleaned[len(compound):])
			return Result{
				BaseName:    compound,
				SkinName:    skin,
				IsStatTrack: isStatTrack,
				FullName:    cleaned,
			}, nil
		}
	}

	parts := strings.SplitN(cleaned, " ", 2)
	res := Result{
		BaseName:    parts[0],
		IsStatTrack: isStatTrack,
		FullName:    cleaned,
	}
	if len(parts) > 1 {
		res.SkinName = strings.TrimSpace(parts[1])
	}
	return res, nil
}

// stripStatTrack removes the variant marker wherever it appears and reports
// whether it was present.
func stripStatTrack(s string) (string, bool) {
	lower := strings.ToLower(s)
	idx := strings.Index(lower, statTrackMarker)
	if idx < 0 {
		return s, false
	}
	cleaned := s[:idx] + s[idx+len(statTrackMarker):]
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return strings.TrimSpace(cleaned), true
}

func stripQuotes(s string) string {
	replacer := strings.NewReplacer("«", "", "»", "", `"`, "")
	return strings.Join(strings.Fields(replacer.Replace(s)), " ")
}
