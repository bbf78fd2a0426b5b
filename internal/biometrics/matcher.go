package biometrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/imaging"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/provider"
)

// DefaultTolerance is the maximum descriptor distance accepted as a match.
const DefaultTolerance = 0.6

// Policy selects among several known users within tolerance.
type Policy string

const (
	// PolicyFirst returns the first user in map order within tolerance.
	PolicyFirst Policy = "first"
	// PolicyBest returns the closest user within tolerance.
	PolicyBest Policy = "best"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyFirst, "":
		return PolicyFirst, nil
	case PolicyBest:
		return PolicyBest, nil
	default:
		return "", fmt.Errorf("unknown match policy %q", s)
	}
}

// Match is a user accepted for a probe descriptor.
type Match struct {
	Name     string
	Distance float64
}

// MatchDescriptor compares probe with every known descriptor. A candidate
// matches when its Euclidean distance is <= tolerance. A NaN distance or
// tolerance never matches.
func MatchDescriptor(probe domain.Descriptor, known *KnownEmbeddings, tolerance float64, policy Policy) (Match, bool) {
	var (
		best  Match
		found bool
	)

	known.Each(func(name string, d domain.Descriptor) bool {
		dist := probe.Distance(d)
		if !(dist <= tolerance) {
			return true
		}
		if !found || dist < best.Distance {
			best = Match{Name: name, Distance: dist}
			found = true
		}
		return policy == PolicyBest
	})

	return best, found
}

// Matcher locates and encodes faces in the original frame and resolves them
// against the known users.
type Matcher struct {
	recognizer provider.FaceRecognizer
	policy     Policy
	logger     *slog.Logger
}

func NewMatcher(recognizer provider.FaceRecognizer, policy Policy, logger *slog.Logger) *Matcher {
	return &Matcher{recognizer: recognizer, policy: policy, logger: logger}
}

// Match returns the matched user name. Faces are tried in detector order
// and the first face with a match decides. Errors read as no match.
func (m *Matcher) Match(ctx context.Context, img *imaging.Image, known *KnownEmbeddings, tolerance float64) (string, bool) {
	faces, err := m.recognizer.Recognize(ctx, img)
	if err != nil {
		m.logger.WarnContext(ctx, "face matching failed", slog.String("error", err.Error()))
		return "", false
	}
	if len(faces) == 0 {
		m.logger.DebugContext(ctx, "no face found for matching")
		return "", false
	}

	for i, f := range faces {
		if match, ok := MatchDescriptor(f.Descriptor, known, tolerance, m.policy); ok {
			m.logger.DebugContext(ctx, "face matched",
				slog.Int("face", i),
				slog.String("user_name", match.Name),
				slog.Float64("distance", match.Distance),
			)
			return match.Name, true
		}
	}

	return "", false
}
