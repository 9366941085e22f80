package record

import "testing"

func TestParseSerializeRoundTrip(t *testing.T) {
	input := "TYPE: DM\nFROM: alice@10.0.0.2\nTO: bob@10.0.0.3\nCONTENT: hi\n\n"

	rec, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got, want := rec.Type(), "DM"; got != want {
		t.Fatalf("Type() = %q, want %q", got, want)
	}
	if got, want := rec.GetOr("CONTENT", ""), "hi"; got != want {
		t.Fatalf("CONTENT = %q, want %q", got, want)
	}

	out, err := Serialize(rec)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if string(out) != input {
		t.Fatalf("round trip mismatch:\n got: %q\nwant: %q", out, input)
	}
}

func TestParseSkipsLinesWithoutColon(t *testing.T) {
	rec, err := Parse([]byte("TYPE: PING\ngarbage line with no colon\nFROM: bob@10.0.0.3\n\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rec.Keys()) != 2 {
		t.Fatalf("expected 2 fields, got %d: %v", len(rec.Keys()), rec.Keys())
	}
}

func TestParseEmptyIsError(t *testing.T) {
	if _, err := Parse([]byte("\n")); err == nil {
		t.Fatal("expected ParseError on empty record")
	}
	if _, err := Parse([]byte("")); err == nil {
		t.Fatal("expected ParseError on empty input")
	}
}

func TestSerializeRejectsNewlineInValue(t *testing.T) {
	rec := New().Set("TYPE", "DM").Set("CONTENT", "line1\nline2")
	if _, err := Serialize(rec); err == nil {
		t.Fatal("expected error for value containing newline")
	}
}

func TestEqualIgnoresOrder(t *testing.T) {
	a := New().Set("TYPE", "PING").Set("FROM", "a@1.2.3.4")
	b := New().Set("FROM", "a@1.2.3.4").Set("TYPE", "PING")

	if !a.Equal(b) {
		t.Fatal("expected records with same fields in different order to be equal")
	}
}

func TestKeyOrderPreservedOnRepeatedSet(t *testing.T) {
	rec := New().Set("TYPE", "PING").Set("FROM", "a@1.2.3.4").Set("TYPE", "PONG")
	want := []string{"TYPE", "FROM"}
	got := rec.Keys()
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i, k := range want {
		if got[i] != k {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
	if v, _ := rec.Get("TYPE"); v != "PONG" {
		t.Fatalf("TYPE = %q, want PONG (last write wins)", v)
	}
}

func TestRequireFieldsMissing(t *testing.T) {
	rec := New().Set("TYPE", "DM").Set("FROM", "a@1.2.3.4")
	if err := ParseDM(rec); err == nil {
		t.Fatal("expected missing-field error")
	}
}
