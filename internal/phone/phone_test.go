package phone

import (
	"errors"
	"testing"
)

// --- Parse Tests ---

func TestParse_BrazilianNumbers(t *testing.T) {
	cases := map[string]Number{
		"5511999998888": {DDI: "55", DDD: "11", Subscriber: "999998888"}, // 13 цифр (9 в номере)
		"551199998888":  {DDI: "55", DDD: "11", Subscriber: "99998888"},  // 12 цифр (8 в номере)
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("Parse(%q) = %+v, want %+v", in, got, want)
		}
	}
}

func TestParse_NorthAmericanNumber(t *testing.T) {
	got, err := Parse("12125551234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Number{DDI: "1", DDD: "212", Subscriber: "5551234"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParse_JID(t *testing.T) {
	got, err := Parse("5511999998888@s.whatsapp.net")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "5511999998888" {
		t.Errorf("got %q, want 5511999998888", got.String())
	}
}

func TestParse_FormattedInput(t *testing.T) {
	cases := []string{
		"+55 11 99999-8888",
		"+55 (11) 99999-8888",
		"55.11.99999.8888",
	}
	for _, in := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got.String() != "5511999998888" {
			t.Errorf("Parse(%q) = %q, want 5511999998888", in, got.String())
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"",
		"abc",
		"5511",              // слишком короткий
		"55119999988889999", // слишком длинный
		"4915112345678",     // неподдерживаемый DDI
		"sim",
	}
	for _, in := range cases {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidNumber) {
			t.Errorf("Parse(%q): expected ErrInvalidNumber, got %v", in, err)
		}
	}
}

// --- Normalize Tests ---

func TestNormalize_Canonical(t *testing.T) {
	got, err := Normalize("+55 (11) 99999-8888")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "5511999998888" {
		t.Errorf("got %q", got)
	}

	// Канонический вид — неподвижная точка
	again, err := Normalize(got)
	if err != nil || again != got {
		t.Errorf("Normalize not idempotent: %q -> %q (%v)", got, again, err)
	}
}
