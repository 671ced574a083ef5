package kidauth

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindClassification(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{ErrMissingField, KindValidation},
		{ErrPasswordMismatch, KindValidation},
		{ErrPINFormat, KindValidation},
		{ErrUnderage, KindValidation},
		{ErrAccountNotFound, KindNotFound},
		{ErrProfileNotFound, KindNotFound},
		{ErrInvalidCredentials, KindAuthentication},
		{ErrAccountUnverified, KindAuthentication},
		{ErrCodeInvalid, KindAuthentication},
		{ErrTokenInvalid, KindAuthentication},
		{ErrPINInvalid, KindAuthentication},
		{ErrSubjectMismatch, KindAuthentication},
		{ErrProfileAccessDenied, KindAuthentication},
		{ErrEmailTaken, KindConflict},
		{ErrAlreadyVerified, KindConflict},
		{ErrLoginRateLimited, KindRateLimited},
		{ErrMailDelivery, KindDependency},
		{ErrSMSDelivery, KindDependency},
		{ErrCodeStoreUnavailable, KindDependency},
		{errors.New("something else"), KindInternal},
	}

	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestKindSeesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrInvalidCredentials)
	if Kind(wrapped) != KindAuthentication {
		t.Fatal("wrapped sentinel lost its kind")
	}

	joined := errors.Join(ErrProviderUnavailable, errors.New("driver timeout"))
	if Kind(joined) != KindDependency {
		t.Fatal("joined sentinel lost its kind")
	}
}
