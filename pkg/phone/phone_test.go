package phone

import "testing"

func TestNormalize_ValidNumbers(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"local trunk prefix", "08031234567", "2348031234567"},
		{"plus country code", "+2348031234567", "2348031234567"},
		{"bare country code", "2348031234567", "2348031234567"},
		{"bare subscriber number", "8031234567", "2348031234567"},
		{"formatting noise", "0803-123-4567", "2348031234567"},
		{"spaces and parens", "(0803) 123 4567", "2348031234567"},
		{"07 prefix", "07062222222", "2347062222222"},
		{"09 prefix", "09093333333", "2349093333333"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.input)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalize_InvalidNumbers(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"too short", "123"},
		{"empty", ""},
		{"no digits", "abc-def"},
		{"landline prefix", "01234567890"},
		{"bad subscriber prefix", "06031234567"},
		{"too long", "080312345678901"},
		{"country code wrong length", "23480312345"},
		{"eleven digits without trunk zero", "18031234567"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.input)
			if err == nil {
				t.Fatalf("Normalize(%q) = %q, want error", tc.input, got)
			}
			if err != ErrInvalidPhone {
				t.Fatalf("Normalize(%q) returned %v, want ErrInvalidPhone", tc.input, err)
			}
		})
	}
}

func TestNormalize_PreservesSubscriberDigits(t *testing.T) {
	got, err := Normalize("08099887766")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	if len(got) != 13 {
		t.Fatalf("expected 13 digits, got %d (%q)", len(got), got)
	}
	if got[:3] != "234" {
		t.Fatalf("expected 234 prefix, got %q", got[:3])
	}
	if got[3:] != "8099887766" {
		t.Fatalf("expected original subscriber digits, got %q", got[3:])
	}
}
