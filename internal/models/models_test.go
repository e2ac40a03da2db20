package models

import "testing"

func TestProductMatches(t *testing.T) {
	p := &Product{ID: 1, Name: "Shirt", Category: "tops", Size: "M", Color: "red"}
	tests := []struct {
		category, size, color string
		want                  bool
	}{
		{"", "", "", true},
		{"tops", "", "", true},
		{"tops", "M", "red", true},
		{"bottoms", "", "", false},
		{"", "L", "", false},
		{"", "", "blue", false},
	}
	for _, tt := range tests {
		if got := p.Matches(tt.category, tt.size, tt.color); got != tt.want {
			t.Errorf("Matches(%q, %q, %q) = %v, want %v", tt.category, tt.size, tt.color, got, tt.want)
		}
	}
}
