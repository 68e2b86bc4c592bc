package jsonutil

import (
	"strings"
	"testing"
)

func TestUnmarshal(t *testing.T) {
	t.Run("valid object", func(t *testing.T) {
		var result map[string]any
		if err := Unmarshal([]byte(`{"name":"test","value":42}`), &result); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if result["name"] != "test" {
			t.Errorf("expected name=test, got %v", result["name"])
		}
	})

	t.Run("valid array", func(t *testing.T) {
		var result []int
		if err := Unmarshal([]byte(`[1,2,3,4,5]`), &result); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if len(result) != 5 {
			t.Errorf("expected 5 elements, got %d", len(result))
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		var result map[string]any
		if err := Unmarshal([]byte(`{invalid}`), &result); err == nil {
			t.Error("Unmarshal() expected error for invalid JSON")
		}
	})
}

func TestMarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		contains string
	}{
		{"simple map", map[string]string{"key": "value"}, `"key"`},
		{"struct", struct{ Name string }{Name: "test"}, `"Name"`},
		{"slice", []int{1, 2, 3}, `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if !strings.Contains(string(got), tt.contains) {
				t.Errorf("Marshal() = %s, want to contain %s", got, tt.contains)
			}
		})
	}
}

func TestMarshalIndent_SortsKeys(t *testing.T) {
	got, err := MarshalIndent(map[string]int{"b": 2, "a": 1}, "  ")
	if err != nil {
		t.Fatalf("MarshalIndent() error = %v", err)
	}
	s := string(got)
	if !strings.Contains(s, "\n") {
		t.Errorf("expected indented output, got %s", s)
	}
	if strings.Index(s, `"a"`) > strings.Index(s, `"b"`) {
		t.Errorf("expected sorted keys, got %s", s)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`{"a":1}`, true},
		{`[1,2]`, true},
		{`"str"`, true},
		{`{invalid}`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := Valid([]byte(tt.input)); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIndent(t *testing.T) {
	got, err := Indent([]byte(`{"z":[1,2],"a":"x"}`), "  ")
	if err != nil {
		t.Fatalf("Indent() error = %v", err)
	}
	if !strings.HasPrefix(string(got), "{\n") {
		t.Errorf("Indent() = %s", got)
	}

	if _, err := Indent([]byte(`nope`), "  "); err == nil {
		t.Error("Indent() expected error for invalid JSON")
	}
}
