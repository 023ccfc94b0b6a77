package bookgen

import (
	"testing"

	"bookforge-api/pkg/errors"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			raw:  `{"title":"A"}`,
			want: `{"title":"A"}`,
			ok:   true,
		},
		{
			name: "surrounded by narration",
			raw:  "Sure! Here is the outline:\n```json\n{\"title\":\"A\"}\n```\nEnjoy.",
			want: `{"title":"A"}`,
			ok:   true,
		},
		{
			name: "nested objects stop at balance",
			raw:  `prefix {"a":{"b":1},"c":2} trailing {"d":3}`,
			want: `{"a":{"b":1},"c":2}`,
			ok:   true,
		},
		{
			name: "braces inside strings ignored",
			raw:  `{"tagline":"a } inside { string","n":1}`,
			want: `{"tagline":"a } inside { string","n":1}`,
			ok:   true,
		},
		{
			name: "escaped quote inside string",
			raw:  `{"title":"she said \"go\" {now}"}`,
			want: `{"title":"she said \"go\" {now}"}`,
			ok:   true,
		},
		{
			name: "no object",
			raw:  "plain prose without structure",
			ok:   false,
		},
		{
			name: "unbalanced object",
			raw:  `{"title":"A"`,
			ok:   false,
		},
		{
			name: "empty input",
			raw:  "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeJSONObject(t *testing.T) {
	var outline BookOutline
	raw := "Here you go:\n{\"title\":\"Midnight Garden\",\"tagline\":\"One night changes everything.\",\"chapters\":[{\"number\":1,\"title\":\"The Gate\",\"summary\":\"Arrival.\"}]}"
	if err := DecodeJSONObject(raw, &outline); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outline.Title != "Midnight Garden" {
		t.Errorf("title = %q", outline.Title)
	}
	if len(outline.Chapters) != 1 || outline.Chapters[0].Number != 1 {
		t.Errorf("chapters = %+v", outline.Chapters)
	}
}

func TestDecodeJSONObjectMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no object at all", raw: "I could not produce an outline."},
		{name: "invalid json", raw: `{"title": unquoted}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v map[string]any
			err := DecodeJSONObject(tt.raw, &v)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, errors.CodeMalformedOutput) {
				t.Errorf("expected CodeMalformedOutput, got %v", err)
			}
		})
	}
}
