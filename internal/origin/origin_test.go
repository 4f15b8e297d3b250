package origin

import (
	"errors"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"index.html", "index.html", false},
		{"/css/site.css", "css/site.css", false},
		{"a//b/./c.js", "a/b/c.js", false},
		{"../../etc/passwd", "etc/passwd", false},
		{"img/../index.html", "index.html", false},
		{"", "", true},
		{"/", "", true},
		{"..", "", true},
		{"a\x00b", "", true},
		{`..\windows`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Clean(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Errorf("Clean(%q) error = %v, want ErrInvalidName", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Clean(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
