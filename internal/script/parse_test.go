package script_test

import (
	"testing"

	"github.com/MrWong99/scriptcast/internal/script"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		wantKind    script.Kind
		wantSpeaker string
		wantText    string
	}{
		{"utterance", "[lucas]: Hallo daar", script.Utterance, "lucas", "Hallo daar"},
		{"speaker lower-cased", "[Lucas]: Hoi", script.Utterance, "lucas", "Hoi"},
		{"speaker with space", "[Host A]: Welkom", script.Utterance, "host_a", "Welkom"},
		{"speaker with digits", "[gast2]: Ja", script.Utterance, "gast2", "Ja"},
		{"text trimmed", "  [emma]:    Echt?   ", script.Utterance, "emma", "Echt?"},
		{"tags kept in text", "[lucas]: [vrolijk] Hoi!", script.Utterance, "lucas", "[vrolijk] Hoi!"},
		{"empty body", "[lucas]:", script.Utterance, "lucas", ""},
		{"pause sentinel", "[PAUZE]", script.Pause, "", ""},
		{"pause sentinel with noise", "--> [PAUZE] <--", script.Pause, "", ""},
		{"long silence", "(lange stilte)", script.Pause, "", ""},
		{"pause wins over utterance", "[lucas]: [PAUZE]", script.Pause, "", ""},
		{"blank", "", script.Blank, "", ""},
		{"whitespace only", " \t ", script.Blank, "", ""},
		{"hash comment", "# comment", script.Comment, "", ""},
		{"slash comment", "// notitie", script.Comment, "", ""},
		{"section", "=== Deel 1 ===", script.Comment, "", ""},
		{"divider", "---", script.Comment, "", ""},
		{"indented comment", "   # ingesprongen", script.Comment, "", ""},
		{"no colon", "[lucas] Hallo", script.Unparseable, "", ""},
		{"free text", "Zomaar een zin", script.Unparseable, "", ""},
		{"empty label", "[]: Hallo", script.Unparseable, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := script.Classify(tt.raw)
			if got.Kind != tt.wantKind {
				t.Fatalf("Classify(%q).Kind = %s, want %s", tt.raw, got.Kind, tt.wantKind)
			}
			if got.Speaker != tt.wantSpeaker {
				t.Errorf("Classify(%q).Speaker = %q, want %q", tt.raw, got.Speaker, tt.wantSpeaker)
			}
			if got.Text != tt.wantText {
				t.Errorf("Classify(%q).Text = %q, want %q", tt.raw, got.Text, tt.wantText)
			}
			if got.Raw != tt.raw {
				t.Errorf("Classify(%q).Raw = %q, want the input", tt.raw, got.Raw)
			}
		})
	}
}

func TestLine_Skippable(t *testing.T) {
	t.Parallel()

	for kind, want := range map[script.Kind]bool{
		script.Blank:       true,
		script.Comment:     true,
		script.Unparseable: true,
		script.Pause:       false,
		script.Utterance:   false,
	} {
		if got := (script.Line{Kind: kind}).Skippable(); got != want {
			t.Errorf("Line{Kind: %s}.Skippable() = %v, want %v", kind, got, want)
		}
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	text := "# intro\r\n[lucas]: Hoi!\r\n\r\n[PAUZE]\n[emma]: Echt?\n"
	lines := script.Parse(text)

	want := []struct {
		number int
		kind   script.Kind
	}{
		{1, script.Comment},
		{2, script.Utterance},
		{3, script.Blank},
		{4, script.Pause},
		{5, script.Utterance},
	}
	if len(lines) != len(want) {
		t.Fatalf("Parse: got %d lines, want %d", len(lines), len(want))
	}
	for i, w := range want {
		if lines[i].Number != w.number || lines[i].Kind != w.kind {
			t.Errorf("line %d = #%d %s, want #%d %s", i, lines[i].Number, lines[i].Kind, w.number, w.kind)
		}
	}
	if lines[1].Raw != "[lucas]: Hoi!" {
		t.Errorf("carriage return not stripped: %q", lines[1].Raw)
	}

	if got := script.Parse(""); got != nil {
		t.Errorf("Parse(\"\") = %v, want nil", got)
	}
}
