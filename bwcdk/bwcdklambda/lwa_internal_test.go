package bwcdklambda

import (
	"testing"
)

func TestParsePassThroughPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		wantSuffix string
		wantErr    bool
	}{
		{name: "custom resource handler", path: "/l/on-event", wantSuffix: "OnEvent"},
		{name: "single word", path: "/l/consume", wantSuffix: "Consume"},
		{name: "missing l prefix", path: "/consume", wantErr: true},
		{name: "wrong prefix", path: "/api/consume", wantErr: true},
		{name: "empty handler", path: "/l/", wantErr: true},
		{name: "too many segments", path: "/l/on-event/extra", wantErr: true},
		{name: "camelCase", path: "/l/onEvent", wantErr: true},
		{name: "snake_case", path: "/l/on_event", wantErr: true},
		{name: "empty path", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			suffix, err := parsePassThroughPath(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if suffix != tt.wantSuffix {
				t.Errorf("suffix = %q, want %q", suffix, tt.wantSuffix)
			}
		})
	}
}
