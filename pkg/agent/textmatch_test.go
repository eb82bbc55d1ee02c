package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Olhão", "olhao"},
		{"São Brás de Alportel", "sao bras de alportel"},
		{"FARO", "faro"},
		{"Armação de Pêra", "armacao de pera"},
		{"plain ascii", "plain ascii"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in))
	}
}

func TestFoldContains(t *testing.T) {
	assert.True(t, FoldContains("Apartamento T2 no centro de Olhão", "olhao"))
	assert.True(t, FoldContains("Rua de Santo António, FARO", "Faro"))
	assert.True(t, FoldContains("Moradia em São Brás", "sao bras"))
	assert.False(t, FoldContains("Apartamento em Lisboa", "Faro"))
	assert.False(t, FoldContains("anything", ""))
}
