package domain

import "testing"

func TestAssetToSynth(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{ETH, SETH},
		{BTC, SBTC},
		{"LINK", "sLINK"},
		{SUSD, SUSD},
	}
	for _, tt := range tests {
		if got := AssetToSynth(tt.in); got != tt.want {
			t.Errorf("AssetToSynth(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
