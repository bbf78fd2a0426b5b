package biometrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/imaging"
)

// LivenessChecker classifies a frame as real or spoof.
type LivenessChecker interface {
	Classify(ctx context.Context, img *imaging.Image) (LivenessResult, error)
}

// IdentityMatcher resolves the face in a frame to a known user.
type IdentityMatcher interface {
	Match(ctx context.Context, img *imaging.Image, known *KnownEmbeddings, tolerance float64) (string, bool)
}

// Authenticator runs liveness, then matching on the same original frame.
// It keeps no per-request state.
type Authenticator struct {
	liveness LivenessChecker
	matcher  IdentityMatcher
	pool     *Pool
	logger   *slog.Logger
}

func NewAuthenticator(liveness LivenessChecker, matcher IdentityMatcher, pool *Pool, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		liveness: liveness,
		matcher:  matcher,
		pool:     pool,
		logger:   logger,
	}
}

// Authenticate decides whether img shows a live face of a known user.
// A spoof verdict rejects without matching. Processing failures are returned
// wrapped in ErrAuthentication; a rejection is not an error.
func (a *Authenticator) Authenticate(ctx context.Context, img *imaging.Image, known *KnownEmbeddings, tolerance float64) (domain.AuthResult, error) {
	if img == nil {
		return domain.Rejected(), ErrNilImage
	}
	if err := img.Validate(); err != nil {
		return domain.Rejected(), err
	}
	if known == nil {
		return domain.Rejected(), ErrNilKnownEmbeddings
	}

	var result domain.AuthResult
	err := a.pool.Do(ctx, func() error {
		var runErr error
		result, runErr = a.run(ctx, img, known, tolerance)
		return runErr
	})
	if err != nil {
		if !errors.Is(err, ErrAuthentication) {
			err = fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		a.logger.ErrorContext(ctx, "authentication failed", slog.String("error", err.Error()))
		return domain.Rejected(), err
	}

	return result, nil
}

func (a *Authenticator) run(ctx context.Context, img *imaging.Image, known *KnownEmbeddings, tolerance float64) (domain.AuthResult, error) {
	liveness, err := a.liveness.Classify(ctx, img)
	if err != nil {
		return domain.Rejected(), fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	if !liveness.IsLive() {
		a.logger.InfoContext(ctx, "spoof rejected")
		return domain.Rejected(), nil
	}

	name, ok := a.matcher.Match(ctx, img, known, tolerance)
	if !ok {
		a.logger.InfoContext(ctx, "no matching user", slog.Int("known_users", known.Len()))
		return domain.Rejected(), nil
	}

	return domain.Authenticated(name), nil
}

// CheckLiveness runs only the liveness gate.
func (a *Authenticator) CheckLiveness(ctx context.Context, img *imaging.Image) (LivenessResult, error) {
	if img == nil {
		return LivenessResult{}, ErrNilImage
	}
	if err := img.Validate(); err != nil {
		return LivenessResult{}, err
	}

	var result LivenessResult
	err := a.pool.Do(ctx, func() error {
		var runErr error
		result, runErr = a.liveness.Classify(ctx, img)
		return runErr
	})
	if err != nil {
		return LivenessResult{}, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return result, nil
}
