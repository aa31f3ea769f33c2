package ui

import (
	"strings"
	"testing"
)

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Action
		wantErr bool
	}{
		{
			name:  "noop",
			input: "noop",
			want:  Action{Kind: KindNoop},
		},
		{
			name:  "save",
			input: "save:cs0gkkl6bv4hkdn3a0q0",
			want:  Action{Kind: KindSave, Token: "cs0gkkl6bv4hkdn3a0q0"},
		},
		{
			name:  "page",
			input: "dict:page:3",
			want:  Action{Kind: KindPage, Value: 3},
		},
		{
			name:  "view",
			input: "dict:view:42",
			want:  Action{Kind: KindView, Value: 42},
		},
		{
			name:  "delete",
			input: "dict:del:42",
			want:  Action{Kind: KindDelete, Value: 42},
		},
		{
			name:  "random",
			input: "dict:random",
			want:  Action{Kind: KindRandom},
		},
		{
			name:  "stats",
			input: "dict:stats",
			want:  Action{Kind: KindStats},
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "missing prefix",
			input:   "page:1",
			wantErr: true,
		},
		{
			name:    "empty save token",
			input:   "save:",
			wantErr: true,
		},
		{
			name:    "empty dictionary action",
			input:   "dict:",
			wantErr: true,
		},
		{
			name:    "unknown action",
			input:   "dict:noop",
			wantErr: true,
		},
		{
			name:    "random with value",
			input:   "dict:random:1",
			wantErr: true,
		},
		{
			name:    "page missing value",
			input:   "dict:page:",
			wantErr: true,
		},
		{
			name:    "page negative",
			input:   "dict:page:-1",
			wantErr: true,
		},
		{
			name:    "view non-numeric",
			input:   "dict:view:abc",
			wantErr: true,
		},
		{
			name:    "id overflow",
			input:   "dict:view:99999999999999999999",
			wantErr: true,
		},
		{
			name:    "extra parts",
			input:   "dict:del:1:extra",
			wantErr: true,
		},
		{
			name:    "too long",
			input:   "save:" + strings.Repeat("a", MaxCallbackDataLen),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCallbackData(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("unexpected action: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuilderCallbacks(t *testing.T) {
	tests := []struct {
		name  string
		build func() (string, error)
		want  Action
	}{
		{
			name:  "save",
			build: func() (string, error) { return BuildSaveCallback("cs0gkkl6bv4hkdn3a0q0") },
			want:  Action{Kind: KindSave, Token: "cs0gkkl6bv4hkdn3a0q0"},
		},
		{
			name:  "page",
			build: func() (string, error) { return BuildPageCallback(2) },
			want:  Action{Kind: KindPage, Value: 2},
		},
		{
			name:  "view",
			build: func() (string, error) { return BuildViewCallback(9007199254740993) },
			want:  Action{Kind: KindView, Value: 9007199254740993},
		},
		{
			name:  "delete",
			build: func() (string, error) { return BuildDeleteCallback(7) },
			want:  Action{Kind: KindDelete, Value: 7},
		},
		{
			name:  "random",
			build: BuildRandomCallback,
			want:  Action{Kind: KindRandom},
		},
		{
			name:  "stats",
			build: BuildStatsCallback,
			want:  Action{Kind: KindStats},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.build()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(data) > MaxCallbackDataLen {
				t.Fatalf("callback data too long: %d", len(data))
			}
			got, err := ParseCallbackData(data)
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("unexpected action: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildCallbackInvalidValues(t *testing.T) {
	if _, err := BuildPageCallback(-1); err == nil {
		t.Fatalf("expected error for negative page")
	}
	if _, err := BuildViewCallback(-1); err == nil {
		t.Fatalf("expected error for negative id")
	}
	if _, err := BuildSaveCallback(""); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if _, err := BuildSaveCallback(strings.Repeat("a", MaxCallbackDataLen)); err == nil {
		t.Fatalf("expected error for oversized token")
	}
}
