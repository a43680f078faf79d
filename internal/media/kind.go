// Package media proxies search and add requests to Radarr, Sonarr and Lidarr
// behind one request/response contract.
package media

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
)

// Kind is a media type served by one downstream backend.
type Kind int

const (
	Movie Kind = iota
	TV
	Music

	kindCount
)

var kindNames = [kindCount]string{
	Movie: "movie",
	TV:    "tv",
	Music: "music",
}

// Words people commonly type for a kind. Used only to suggest the right key.
var kindAliases = map[string]Kind{
	"movies": Movie,
	"film":   Movie,
	"show":   TV,
	"shows":  TV,
	"series": TV,
	"artist": Music,
	"album":  Music,
}

// suggestThreshold is the minimum Jaro-Winkler similarity for a suggestion.
const suggestThreshold = 0.8

// Kinds returns every kind in a stable order.
func Kinds() []Kind {
	return []Kind{Movie, TV, Music}
}

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) valid() bool {
	return k >= 0 && k < kindCount
}

// ParseKind maps a URL key to a Kind. Anything outside movie|tv|music is
// rejected with ErrUnknownMediaType; there is no default.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if s == name {
			return Kind(k), nil
		}
	}
	return 0, &UnknownKindError{Input: s, Suggestion: suggestKind(s)}
}

// suggestKind returns the closest valid key for s, or "" if nothing is close.
func suggestKind(s string) string {
	in := strings.ToLower(strings.TrimSpace(s))
	if in == "" {
		return ""
	}
	if k, ok := kindAliases[in]; ok {
		return k.String()
	}

	best, bestScore := "", float32(0)
	for _, name := range kindNames {
		score := edlib.JaroWinklerSimilarity(in, name)
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if bestScore < suggestThreshold {
		return ""
	}
	return best
}

// UnknownKindError is returned by ParseKind. It matches ErrUnknownMediaType.
type UnknownKindError struct {
	Input      string
	Suggestion string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown media type %q", e.Input)
}

func (e *UnknownKindError) Unwrap() error { return ErrUnknownMediaType }

// Message is the caller-facing description.
func (e *UnknownKindError) Message() string {
	msg := "Invalid type. Must be one of: " + strings.Join(kindNames[:], ", ")
	if e.Suggestion != "" {
		msg += fmt.Sprintf(". Did you mean %q?", e.Suggestion)
	}
	return msg
}
