package tokenizer

import (
	"reflect"
	"testing"
)

func TestWord_EncodeDeterministic(t *testing.T) {
	w := NewWord()

	a, err := w.Encode("the same sentence, twice over")
	if err != nil {
		t.Fatal(err)
	}
	b, err := w.Encode("the same sentence, twice over")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical input must produce identical token ids")
	}
}

func TestWord_EncodeCaseInsensitive(t *testing.T) {
	w := NewWord()

	a, _ := w.Encode("Hello World")
	b, _ := w.Encode("hello world")
	if !reflect.DeepEqual(a, b) {
		t.Error("token ids must be case-insensitive")
	}
}

func TestWord_EncodeTokenCounts(t *testing.T) {
	w := NewWord()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "   \n\t  ", 0},
		{"plain words", "three plain words", 3},
		{"punctuation splits", "done, finally!", 4},
		{"contractions and hyphens stay whole", "it's a well-known trick", 4},
		{"unicode word characters", "café culture", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := w.Encode(tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if len(ids) != tt.want {
				t.Errorf("Encode(%q) = %d tokens, want %d", tt.text, len(ids), tt.want)
			}
		})
	}
}

func TestWord_EncodeUninitialized(t *testing.T) {
	var w *Word
	if _, err := w.Encode("text"); err == nil {
		t.Error("expected error from uninitialized tokenizer")
	}
}
