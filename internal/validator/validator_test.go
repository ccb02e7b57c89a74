package validator

import (
	"strings"
	"testing"
)

type params struct {
	Query string `json:"query" schema:"required"`
	Limit int    `json:"limit,omitempty" schema:"min:1,max:5"`
	Mode  string `json:"mode,omitempty" schema:"enum:fast|deep"`
	Path  string `json:"path,omitempty" schema:"pattern:^/"`
}

func TestValidate(t *testing.T) {
	v := New()
	cases := []struct {
		name    string
		in      params
		wantErr string
	}{
		{"ok", params{Query: "x", Limit: 3, Mode: "deep", Path: "/tmp"}, ""},
		{"missing required", params{}, "field 'query' is required"},
		{"below min", params{Query: "x", Limit: -1}, "at least 1"},
		{"above max", params{Query: "x", Limit: 9}, "at most 5"},
		{"bad enum", params{Query: "x", Mode: "slow"}, "must be one of: fast, deep"},
		{"bad pattern", params{Query: "x", Path: "tmp"}, "does not match pattern"},
		{"optional zero skipped", params{Query: "x"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(&tc.in)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateRejectsNonStruct(t *testing.T) {
	if err := New().Validate("nope"); err == nil {
		t.Fatalf("expected error")
	}
}
