package dedupe

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"+1 (555) 123-4567", "5551234567"},
		{"5551234567", "5551234567"},
		{"555.123.4567", "5551234567"},
		{"1-555-123-4567", "5551234567"},
		{"", ""},
		{"call me", ""},
		{"ext 1", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  John.Smith@Example.COM "); got != "john.smith@example.com" {
		t.Fatalf("unexpected email %q", got)
	}
	if got := NormalizeEmail(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Mary-Jane O'Neil ", "maryjane oneil"},
		{"JOHN SMITH", "john smith"},
		{"Dr. Smith, Jr.", "dr smith jr"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"123 Main Street", "123 main"},
		{"123 Main St.", "123 main"},
		{"45  Oak   Ave, Austin TX", "45 oak austin tx"},
		{"9 Stanford Court", "9 stanford"},
		{"7 Placid Ln", "7 placid"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeAddress(tc.in); got != tc.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizersAreIdempotent(t *testing.T) {
	inputs := []string{
		"+1 (555) 123-4567",
		"  Mary-Jane O'Neil ",
		"45  Oak   Ave, Austin TX",
		"S.T. Main Rd.",
		"JOHN@EXAMPLE.COM ",
		"",
	}
	funcs := map[string]func(string) string{
		"phone":   NormalizePhone,
		"email":   NormalizeEmail,
		"name":    NormalizeName,
		"address": NormalizeAddress,
	}
	for name, fn := range funcs {
		for _, in := range inputs {
			once := fn(in)
			if twice := fn(once); twice != once {
				t.Errorf("%s not idempotent for %q: %q then %q", name, in, once, twice)
			}
		}
	}
}
