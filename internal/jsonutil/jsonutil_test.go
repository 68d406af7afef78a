package jsonutil

import (
	"testing"
	"time"
)

func TestUnmarshalWithContext(t *testing.T) {
	type TestStruct struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{
			name:    "valid JSON",
			data:    []byte(`{"name":"test"}`),
			wantErr: false,
		},
		{
			name:    "invalid JSON",
			data:    []byte(`not json`),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v TestStruct
			err := UnmarshalWithContext(tt.data, &v, "test context")
			if (err != nil) != tt.wantErr {
				t.Errorf("UnmarshalWithContext() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && v.Name != "test" {
				t.Errorf("UnmarshalWithContext() v.Name = %q, want %q", v.Name, "test")
			}
		})
	}
}

func TestGetString(t *testing.T) {
	m := map[string]interface{}{
		"str":  "value",
		"num":  42.0,
		"bool": true,
		"nil":  nil,
	}

	tests := []struct {
		key  string
		want string
	}{
		{"str", "value"},
		{"num", ""},
		{"bool", ""},
		{"nil", ""},
		{"missing", ""},
	}
	for _, tt := range tests {
		if got := GetString(m, tt.key); got != tt.want {
			t.Errorf("GetString(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestFirstString(t *testing.T) {
	m := map[string]interface{}{
		"message":           "",
		"msg":               "Invalid JWT",
		"error_description": "expired",
	}
	if got := FirstString(m, "message", "msg", "error_description"); got != "Invalid JWT" {
		t.Errorf("FirstString = %q, want %q", got, "Invalid JWT")
	}
	if got := FirstString(m, "nope"); got != "" {
		t.Errorf("FirstString(nope) = %q, want empty", got)
	}
}

func TestToString(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"s", "s"},
		{42.0, "42"},
		{1.5, "1.5"},
		{true, "true"},
		{[]int{1}, "[1]"},
	}
	for _, tt := range tests {
		if got := ToString(tt.in); got != tt.want {
			t.Errorf("ToString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 4, 3, 10, 20, 30, 123456000, time.UTC)
	inputs := []string{
		"2026-04-03T10:20:30.123456Z",
		"2026-04-03T10:20:30.123456+00:00",
		"2026-04-03T10:20:30.123456",
		"2026-04-03 10:20:30.123456+00",
		"2026-04-03 12:20:30.123456+02:00",
	}
	for _, in := range inputs {
		got, err := ParseTimestamp(in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseTimestamp(""); err == nil {
		t.Error("ParseTimestamp(\"\"): expected error")
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("ParseTimestamp(yesterday): expected error")
	}
}
