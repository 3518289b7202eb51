package hearings

import (
	"regexp"
	"strings"

	"courtharvest-backend/lib/harvest"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// Roster is the configured list of hearing officers known to sit at the
// court. It serves double duty: it is the enumerable dimension the
// partitioner splits capped queries on, and the canonical spelling that
// scraped officer names are folded onto.
type Roster struct {
	// Names holds canonical officer names as the portal's search filter
	// expects them.
	Names []string `json:"names"`
	// MinSimilarity is the Jaro-Winkler score below which a scraped
	// spelling is left as-is instead of being folded onto the roster.
	MinSimilarity float64 `json:"min_similarity"`
}

// Category exposes the roster as a partitioning dimension.
func (r Roster) Category() harvest.Category {
	return harvest.Category{Name: "officer", Values: r.Names}
}

// Resolve folds a scraped officer spelling onto the closest roster
// name. The second return reports whether a roster name matched.
func (r Roster) Resolve(raw string) (string, bool) {
	needle := normalizeName(raw)
	if needle == "" {
		return raw, false
	}

	var mostSimilarity float64
	var mostSimilar string
	for _, name := range r.Names {
		if normalizeName(name) == needle {
			return name, true
		}
		similarity := matchr.JaroWinkler(needle, normalizeName(name), false)
		if similarity > mostSimilarity {
			mostSimilarity = similarity
			mostSimilar = name
		}
	}

	if mostSimilarity >= r.MinSimilarity && mostSimilar != "" {
		return mostSimilar, true
	}
	return raw, false
}
