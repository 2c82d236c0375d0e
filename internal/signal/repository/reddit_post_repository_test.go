package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLikeTerm(t *testing.T) {
	tests := []struct {
		name     string
		term     string
		expected string
	}{
		{name: "plain term is untouched", term: "electronic arts", expected: "electronic arts"},
		{name: "percent is escaped", term: "100% orange juice", expected: `100\% orange juice`},
		{name: "underscore is escaped", term: "take_two", expected: `take\_two`},
		{name: "backslash is escaped first", term: `c:\games`, expected: `c:\\games`},
		{name: "mixed metacharacters", term: `%_\`, expected: `\%\_\\`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeLikeTerm(tt.term))
		})
	}
}
