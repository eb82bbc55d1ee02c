package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchOutput(t *testing.T) {
	t.Run("organic json results", func(t *testing.T) {
		raw := `{
			"organic": [
				{"title": "T2 em Faro", "link": "https://www.idealista.pt/imovel/1", "snippet": "Apartamento T2", "display_link": "idealista.pt"},
				{"title": "T3 em Olhão", "url": "https://www.imovirtual.com/2", "description": "Moradia T3"}
			]
		}`

		hits := parseSearchOutput(raw)

		require.Len(t, hits, 2)
		assert.Equal(t, "T2 em Faro", hits[0].Title)
		assert.Equal(t, "https://www.idealista.pt/imovel/1", hits[0].URL)
		assert.Equal(t, "Apartamento T2", hits[0].Snippet)
		assert.Equal(t, "idealista.pt", hits[0].DisplayURL)
		assert.Equal(t, "https://www.imovirtual.com/2", hits[1].URL)
		assert.Equal(t, "Moradia T3", hits[1].Snippet)
	})

	t.Run("results without url are dropped", func(t *testing.T) {
		raw := `{"organic": [{"title": "no link"}, {"title": "ok", "link": "https://x.pt/1"}]}`

		hits := parseSearchOutput(raw)

		require.Len(t, hits, 1)
		assert.Equal(t, "ok", hits[0].Title)
	})

	t.Run("markdown link fallback", func(t *testing.T) {
		raw := "Results:\n- [Apartamento T2 Faro](https://www.idealista.pt/imovel/3)\n- [Sem link]()\nplain line"

		hits := parseSearchOutput(raw)

		require.Len(t, hits, 1)
		assert.Equal(t, "Apartamento T2 Faro", hits[0].Title)
		assert.Equal(t, "https://www.idealista.pt/imovel/3", hits[0].URL)
	})

	t.Run("empty output", func(t *testing.T) {
		assert.Empty(t, parseSearchOutput(""))
		assert.Empty(t, parseSearchOutput(`{"organic": []}`))
	})
}
