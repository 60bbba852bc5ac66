package sheets

import "testing"

func TestMarker(t *testing.T) {
	r := MirrorRow{TransactionID: "abc-1", Description: "coffee"}
	if got := r.TaggedDescription(); got != "coffee [id:abc-1]" {
		t.Errorf("TaggedDescription = %q", got)
	}
	if got := (MirrorRow{TransactionID: "z"}).TaggedDescription(); got != "[id:z]" {
		t.Errorf("TaggedDescription without text = %q", got)
	}

	tests := []struct {
		cell string
		id   string
		ok   bool
	}{
		{"coffee [id:abc-1]", "abc-1", true},
		{"[id:z]", "z", true},
		{"plain text", "", false},
		{"[id:]", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			id, ok := ExtractID(tt.cell)
			if id != tt.id || ok != tt.ok {
				t.Errorf("ExtractID(%q) = (%q, %v), want (%q, %v)", tt.cell, id, ok, tt.id, tt.ok)
			}
		})
	}
}
