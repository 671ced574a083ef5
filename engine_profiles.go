package kidauth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// CreateRestrictedProfile adds a child profile under an account. The
// profile PIN is independent of the account PIN and is stored only as a
// digest.
func (e *Engine) CreateRestrictedProfile(ctx context.Context, req CreateProfileRequest) (ProfileInfo, error) {
	if e == nil || e.accounts == nil || e.secretHash == nil {
		return ProfileInfo{}, ErrEngineNotReady
	}
	if e.profiles == nil {
		return ProfileInfo{}, ErrProviderUnavailable
	}

	ownerID := strings.TrimSpace(req.OwnerID)
	name := strings.TrimSpace(req.Name)
	if ownerID == "" || name == "" || req.PIN == "" {
		return ProfileInfo{}, ErrMissingField
	}
	if !isDigits(req.PIN, e.config.Registration.PINDigits) {
		return ProfileInfo{}, ErrPINFormat
	}

	if _, err := e.accounts.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ProfileInfo{}, ErrAccountNotFound
		}
		return ProfileInfo{}, errors.Join(ErrProviderUnavailable, err)
	}

	pinHash, err := e.secretHash.Hash(req.PIN)
	if err != nil {
		return ProfileInfo{}, ErrPINFormat
	}

	profile := RestrictedProfile{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    name,
		Avatar:  strings.TrimSpace(req.Avatar),
		PINHash: pinHash,
	}

	created, err := e.profiles.Create(ctx, profile)
	if err != nil {
		return ProfileInfo{}, errors.Join(ErrProviderUnavailable, err)
	}

	e.metricInc(MetricProfileCreated)
	e.emitAudit(ctx, AuditProfileCreated, true, ownerID, created.ID, nil, nil)

	return profileInfo(created), nil
}

// ListRestrictedProfiles returns the sanitized profiles owned by an
// account, PIN digests excluded.
func (e *Engine) ListRestrictedProfiles(ctx context.Context, ownerID string) ([]ProfileInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.profiles == nil {
		return nil, ErrProviderUnavailable
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrMissingField
	}

	profiles, err := e.profiles.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	infos := make([]ProfileInfo, 0, len(profiles))
	for _, p := range profiles {
		infos = append(infos, profileInfo(p))
	}
	return infos, nil
}

// GetRestrictedProfile fetches one profile, enforcing that the caller's
// account owns it.
func (e *Engine) GetRestrictedProfile(ctx context.Context, ownerID, profileID string) (ProfileInfo, error) {
	profile, err := e.ownedProfile(ctx, ownerID, profileID)
	if err != nil {
		return ProfileInfo{}, err
	}
	return profileInfo(profile), nil
}

// UpdateRestrictedProfile changes a profile's name, avatar, or PIN. Empty
// fields keep their stored value; a non-empty PIN must be six digits and
// replaces the digest.
func (e *Engine) UpdateRestrictedProfile(ctx context.Context, req UpdateProfileRequest) (ProfileInfo, error) {
	profile, err := e.ownedProfile(ctx, req.OwnerID, req.ProfileID)
	if err != nil {
		return ProfileInfo{}, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		profile.Name = name
	}
	if avatar := strings.TrimSpace(req.Avatar); avatar != "" {
		profile.Avatar = avatar
	}
	if req.PIN != "" {
		if !isDigits(req.PIN, e.config.Registration.PINDigits) {
			return ProfileInfo{}, ErrPINFormat
		}
		pinHash, err := e.secretHash.Hash(req.PIN)
		if err != nil {
			return ProfileInfo{}, ErrPINFormat
		}
		profile.PINHash = pinHash
	}

	updated, err := e.profiles.Update(ctx, profile)
	if err != nil {
		return ProfileInfo{}, errors.Join(ErrProviderUnavailable, err)
	}

	e.metricInc(MetricProfileUpdated)
	e.emitAudit(ctx, AuditProfileUpdated, true, updated.OwnerID, updated.ID, nil, nil)

	return profileInfo(updated), nil
}

// DeleteRestrictedProfile removes one profile after the ownership check.
func (e *Engine) DeleteRestrictedProfile(ctx context.Context, ownerID, profileID string) error {
	profile, err := e.ownedProfile(ctx, ownerID, profileID)
	if err != nil {
		return err
	}

	if err := e.profiles.Delete(ctx, profile.ID); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return ErrProfileNotFound
		}
		return errors.Join(ErrProviderUnavailable, err)
	}

	e.metricInc(MetricProfileDeleted)
	e.emitAudit(ctx, AuditProfileDeleted, true, ownerID, profile.ID, nil, nil)
	return nil
}

// DeleteProfilesForAccount removes every profile owned by an account and
// reports how many were dropped. Used when an account is closed.
func (e *Engine) DeleteProfilesForAccount(ctx context.Context, ownerID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if e.profiles == nil {
		return 0, ErrProviderUnavailable
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return 0, ErrMissingField
	}

	removed, err := e.profiles.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return 0, errors.Join(ErrProviderUnavailable, err)
	}

	for i := 0; i < removed; i++ {
		e.metricInc(MetricProfileDeleted)
	}
	e.emitAudit(ctx, AuditProfileDeleted, true, ownerID, "", nil, func() map[string]string {
		return map[string]string{"cascade": "true"}
	})
	return removed, nil
}

// VerifyRestrictedProfilePIN checks a profile's PIN for profile switching
// and returns the sanitized profile on success, so the caller can activate
// it without a second lookup. The PIN and its digest never appear in the
// response or in audit events.
func (e *Engine) VerifyRestrictedProfilePIN(ctx context.Context, profileID, pin string) (ProfileInfo, error) {
	if e == nil || e.secretHash == nil {
		return ProfileInfo{}, ErrEngineNotReady
	}
	if e.profiles == nil {
		return ProfileInfo{}, ErrProviderUnavailable
	}
	if strings.TrimSpace(profileID) == "" || pin == "" {
		return ProfileInfo{}, ErrMissingField
	}

	profile, err := e.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return ProfileInfo{}, ErrProfileNotFound
		}
		return ProfileInfo{}, errors.Join(ErrProviderUnavailable, err)
	}

	ok, err := e.secretHash.Verify(pin, profile.PINHash)
	if err != nil || !ok {
		e.metricInc(MetricProfilePINFailure)
		e.emitAudit(ctx, AuditProfilePINRejected, false, profile.OwnerID, profile.ID, ErrPINInvalid, nil)
		return ProfileInfo{}, ErrPINInvalid
	}

	e.metricInc(MetricProfilePINSuccess)
	e.emitAudit(ctx, AuditProfilePINVerified, true, profile.OwnerID, profile.ID, nil, nil)
	return profileInfo(profile), nil
}

// ownedProfile loads a profile and verifies ownership. A profile owned by
// a different account fails with [ErrProfileAccessDenied], not not-found,
// so the caller knows the id was valid but forbidden.
func (e *Engine) ownedProfile(ctx context.Context, ownerID, profileID string) (RestrictedProfile, error) {
	if e == nil || e.secretHash == nil {
		return RestrictedProfile{}, ErrEngineNotReady
	}
	if e.profiles == nil {
		return RestrictedProfile{}, ErrProviderUnavailable
	}

	ownerID = strings.TrimSpace(ownerID)
	profileID = strings.TrimSpace(profileID)
	if ownerID == "" || profileID == "" {
		return RestrictedProfile{}, ErrMissingField
	}

	profile, err := e.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return RestrictedProfile{}, ErrProfileNotFound
		}
		return RestrictedProfile{}, errors.Join(ErrProviderUnavailable, err)
	}
	if profile.OwnerID != ownerID {
		e.emitAudit(ctx, AuditProfileUpdated, false, ownerID, profile.ID, ErrProfileAccessDenied, nil)
		return RestrictedProfile{}, ErrProfileAccessDenied
	}
	return profile, nil
}
