package prices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidSymbol(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		want   bool
	}{
		{"plain equity", "AAPL", true},
		{"lowercase", "aapl", true},
		{"exchange suffix", "SAP.DE", true},
		{"class share dash", "BRK-B", true},
		{"index benchmark", "^GSPC", true},
		{"numeric ticker", "7203.T", true},
		{"empty", "", false},
		{"caret mid-symbol", "GS^PC", false},
		{"whitespace", "AA PL", false},
		{"dots and dashes only", "BF.B-X", true},
		{"slash", "A/B", false},
		{"dollar prefix", "$SPY", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidSymbol(tt.symbol))
		})
	}
}
