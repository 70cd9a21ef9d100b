package router

import (
	"errors"
	"testing"
)

func TestExtractServiceName(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"plain grpc path", "/chat.Service/Say", "chat.Service", false},
		{"deeply dotted service", "/chat.api.v1.Rooms/Create", "chat.api.v1.Rooms", false},
		{"dotted form preserved", "/a.b.c/Method", "a.b.c", false},
		{"registry path shape", "/registry.RegistryService/Register", "registry.RegistryService", false},
		{"dotless service", "/chat/Say", "chat", false},
		{"unqualified service", "/Service/Say", "Service", false},
		{"missing method", "/chat.Service", "", true},
		{"missing method with slash", "/chat.Service/", "", true},
		{"empty path", "", "", true},
		{"bare slash", "/", "", true},
		{"empty service segment", "//Say", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractServiceName(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.path, got)
				}
				if !errors.Is(err, ErrInvalidPath) {
					t.Fatalf("expected ErrInvalidPath, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.path, err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
