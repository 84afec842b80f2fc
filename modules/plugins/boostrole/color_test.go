package boostrole

import "testing"

func TestResolveColor(t *testing.T) {
	tests := []struct {
		spec    string
		want    int
		wantErr bool
	}{
		{spec: "#ff0000", want: 0xff0000},
		{spec: "ff0000", want: 0xff0000},
		{spec: "#00FF00", want: 0x00ff00},
		{spec: "red", want: 0xed4245},
		{spec: "RED", want: 0xed4245},
		{spec: " blurple ", want: 0x5865f2},
		{spec: "black", want: 0x000000},
		{spec: "#ZZZZZZ", wantErr: true},
		{spec: "notacolor", wantErr: true},
		{spec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ResolveColor(tt.spec)
			if tt.wantErr {
				if err != ErrInvalidColor {
					t.Fatalf("ResolveColor(%q) err = %v, want ErrInvalidColor", tt.spec, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveColor(%q) failed: %v", tt.spec, err)
			}
			if got != tt.want {
				t.Errorf("ResolveColor(%q) = %#x, want %#x", tt.spec, got, tt.want)
			}
		})
	}
}

func TestHexFromColorRoundTrip(t *testing.T) {
	for _, hex := range []string{"#ff0000", "#82e2f4", "#000001", "#ffffff"} {
		value, err := ResolveColor(hex)
		if err != nil {
			t.Fatalf("ResolveColor(%q) failed: %v", hex, err)
		}
		if got := HexFromColor(value); got != hex {
			t.Errorf("HexFromColor(ResolveColor(%q)) = %q", hex, got)
		}
	}
}
