package kidauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFederatedLoginFirstContactCreatesIncompleteAccount(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.identity.assertions["tok-bob"] = IdentityAssertion{
		Subject:     "google-sub-1",
		Email:       "Bob@Example.com",
		DisplayName: "Bob Solis Mora",
	}
	ctx := context.Background()

	result, err := env.engine.FederatedLogin(ctx, "tok-bob")
	if err != nil {
		t.Fatalf("FederatedLogin failed: %v", err)
	}
	if !result.NewAccount || !result.ProfileIncomplete || result.Session != nil {
		t.Fatalf("unexpected first-contact result: %+v", result)
	}

	account := env.accounts.get(result.AccountID)
	if account.Status != AccountPendingCompletion {
		t.Fatalf("expected pending_completion, got %v", account.Status)
	}
	if account.Email != "bob@example.com" || account.FederatedSubject != "google-sub-1" {
		t.Fatalf("unexpected account: %+v", account)
	}
	if account.FirstName != "Bob" || account.LastName != "Solis Mora" {
		t.Fatalf("unexpected name split: %q %q", account.FirstName, account.LastName)
	}

	// The placeholder digest must not admit any password login.
	if _, err := env.engine.Login(ctx, "bob@example.com", "anything-at-all-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestFederatedLoginLinksExistingAccount(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	account := activeTestAccount(t, env, "alice@example.com")

	env.identity.assertions["tok-alice"] = IdentityAssertion{
		Subject: "google-sub-2",
		Email:   "alice@example.com",
	}

	result, err := env.engine.FederatedLogin(ctx, "tok-alice")
	if err != nil {
		t.Fatalf("FederatedLogin failed: %v", err)
	}
	if result.NewAccount || result.ProfileIncomplete || result.Session == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.AccountID != account.ID {
		t.Fatalf("expected existing account id, got %q", result.AccountID)
	}
	if env.accounts.get(account.ID).FederatedSubject != "google-sub-2" {
		t.Fatal("expected subject to be linked")
	}

	claims, err := env.engine.ValidateSession(result.Session.Token)
	if err != nil || claims.UID != account.ID {
		t.Fatalf("session does not validate, claims=%+v err=%v", claims, err)
	}
}

func TestFederatedLoginSubjectMismatch(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	account := activeTestAccount(t, env, "alice@example.com")

	env.identity.assertions["tok-1"] = IdentityAssertion{Subject: "sub-a", Email: "alice@example.com"}
	env.identity.assertions["tok-2"] = IdentityAssertion{Subject: "sub-b", Email: "alice@example.com"}

	if _, err := env.engine.FederatedLogin(ctx, "tok-1"); err != nil {
		t.Fatalf("linking login failed: %v", err)
	}
	if _, err := env.engine.FederatedLogin(ctx, "tok-2"); !errors.Is(err, ErrSubjectMismatch) {
		t.Fatalf("expected ErrSubjectMismatch, got %v", err)
	}
	if env.accounts.get(account.ID).FederatedSubject != "sub-a" {
		t.Fatal("link must not change on mismatch")
	}
}

func TestFederatedLoginInvalidAssertion(t *testing.T) {
	env := newTestEnv(t, testConfig())

	if _, err := env.engine.FederatedLogin(context.Background(), "garbage"); !errors.Is(err, ErrAssertionInvalid) {
		t.Fatalf("expected ErrAssertionInvalid, got %v", err)
	}
}

func TestFederatedLoginActivatesPendingAccount(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	result := mustRegister(t, env, "alice@example.com")

	env.identity.assertions["tok"] = IdentityAssertion{Subject: "sub-a", Email: "alice@example.com"}

	fed, err := env.engine.FederatedLogin(ctx, "tok")
	if err != nil {
		t.Fatalf("FederatedLogin failed: %v", err)
	}
	if fed.Session == nil {
		t.Fatal("expected a session for provider-verified email")
	}

	account := env.accounts.get(result.AccountID)
	if account.Status != AccountActive || account.VerificationToken != "" {
		t.Fatalf("expected provider contact to verify the email, got %v", account.Status)
	}
}

func TestCompleteFederatedProfile(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.identity.assertions["tok-bob"] = IdentityAssertion{
		Subject:     "google-sub-1",
		Email:       "bob@example.com",
		DisplayName: "Bob Solis",
	}
	ctx := context.Background()

	fed, err := env.engine.FederatedLogin(ctx, "tok-bob")
	if err != nil {
		t.Fatalf("FederatedLogin failed: %v", err)
	}

	req := CompleteProfileRequest{
		AccountID: fed.AccountID,
		Assertion: "tok-bob",
		Phone:     "88887777",
		PIN:       "123456",
		Country:   "Costa Rica",
		BirthDate: time.Date(1988, 3, 2, 0, 0, 0, 0, time.UTC),
	}

	session, err := env.engine.CompleteFederatedProfile(ctx, req)
	if err != nil {
		t.Fatalf("CompleteFederatedProfile failed: %v", err)
	}
	if session.Account.ID != fed.AccountID {
		t.Fatalf("unexpected session account: %+v", session.Account)
	}

	account := env.accounts.get(fed.AccountID)
	if account.Status != AccountActive || account.Phone != "88887777" || account.PINHash == "" {
		t.Fatalf("profile completion not persisted: %+v", account)
	}

	// Completing twice must fail: the account is no longer incomplete.
	if _, err := env.engine.CompleteFederatedProfile(ctx, req); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestCompleteFederatedProfileRejections(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.identity.assertions["tok-bob"] = IdentityAssertion{Subject: "sub-bob", Email: "bob@example.com"}
	env.identity.assertions["tok-eve"] = IdentityAssertion{Subject: "sub-eve", Email: "eve@example.com"}
	ctx := context.Background()

	fed, err := env.engine.FederatedLogin(ctx, "tok-bob")
	if err != nil {
		t.Fatalf("FederatedLogin failed: %v", err)
	}

	base := CompleteProfileRequest{
		AccountID: fed.AccountID,
		Assertion: "tok-bob",
		Phone:     "88887777",
		PIN:       "123456",
		Country:   "Costa Rica",
		BirthDate: time.Date(1988, 3, 2, 0, 0, 0, 0, time.UTC),
	}

	cases := []struct {
		name   string
		mutate func(*CompleteProfileRequest)
		want   error
	}{
		{"missing phone", func(r *CompleteProfileRequest) { r.Phone = "" }, ErrMissingField},
		{"bad pin", func(r *CompleteProfileRequest) { r.PIN = "12ab56" }, ErrPINFormat},
		{"underage", func(r *CompleteProfileRequest) {
			r.BirthDate = time.Date(time.Now().Year()-16, 1, 1, 0, 0, 0, 0, time.UTC)
		}, ErrUnderage},
		{"foreign subject", func(r *CompleteProfileRequest) { r.Assertion = "tok-eve" }, ErrSubjectMismatch},
		{"invalid assertion", func(r *CompleteProfileRequest) { r.Assertion = "garbage" }, ErrAssertionInvalid},
		{"unknown account", func(r *CompleteProfileRequest) { r.AccountID = "ghost" }, ErrAccountNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			if _, err := env.engine.CompleteFederatedProfile(ctx, req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if env.accounts.get(fed.AccountID).Status != AccountPendingCompletion {
		t.Fatal("rejected completions must not change the account")
	}
}

func TestFederatedLoginWithoutVerifier(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.engine.identity = nil

	if _, err := env.engine.FederatedLogin(context.Background(), "tok"); !errors.Is(err, ErrIdentityUnavailable) {
		t.Fatalf("expected ErrIdentityUnavailable, got %v", err)
	}
}
