package vectorindex

import "testing"

func TestLiteralFormatsVectorForPostgres(t *testing.T) {
	got := literal([]float32{1, -0.5, 2.25})
	want := "[1,-0.5,2.25]"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestParseVectorLiteralRoundTripsLiteral(t *testing.T) {
	vec := []float32{1, -0.5, 2.25}
	parsed := parseVectorLiteral(literal(vec))
	if len(parsed) != len(vec) {
		t.Fatalf("expected %d values, got %d", len(vec), len(parsed))
	}
	for i := range vec {
		if parsed[i] != vec[i] {
			t.Fatalf("expected value %f at index %d, got %f", vec[i], i, parsed[i])
		}
	}
}

func TestParseVectorLiteralHandlesEmpty(t *testing.T) {
	if got := parseVectorLiteral("[]"); got != nil {
		t.Fatalf("expected nil for empty vector literal, got %v", got)
	}
}
