package phone

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name            string
		number          string
		dialCode        string
		defaultDialCode string
		want            string
	}{
		{"already prefixed", "+50688887777", "", "506", "+50688887777"},
		{"prefixed with spaces", "+506 8888 7777", "", "", "+50688887777"},
		{"explicit dial code wins", "88887777", "506", "52", "+50688887777"},
		{"default fallback", "88887777", "", "506", "+50688887777"},
		{"no prefix available", "88887777", "", "", "+88887777"},
		{"formatting stripped", "8888-7777", "506", "", "+50688887777"},
		{"prefix already typed", "5215512345678", "52", "", "+5215512345678"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.number, tc.dialCode, tc.defaultDialCode)
			if err != nil {
				t.Fatalf("Normalize error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Normalize(%q, %q, %q) = %q, want %q",
					tc.number, tc.dialCode, tc.defaultDialCode, got, tc.want)
			}
		})
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if _, err := Normalize("", "506", "506"); err == nil {
		t.Fatal("expected empty number to be rejected")
	}
	if _, err := Normalize("--", "506", "506"); err == nil {
		t.Fatal("expected digit-free number to be rejected")
	}
}

func TestDialCodeForCountry(t *testing.T) {
	code, ok := DialCodeForCountry("Costa Rica")
	if !ok || code != "506" {
		t.Fatalf("expected 506 for Costa Rica, got %q ok=%v", code, ok)
	}
	code, ok = DialCodeForCountry("  mexico ")
	if !ok || code != "52" {
		t.Fatalf("expected 52 for mexico, got %q ok=%v", code, ok)
	}
	if _, ok := DialCodeForCountry("atlantis"); ok {
		t.Fatal("expected unknown country to miss")
	}
}
