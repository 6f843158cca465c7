package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/et-mohedano/demo-delegados/pkg/catalog"
)

func TestCatalog_Validate(t *testing.T) {
	t.Parallel()

	c := catalog.Default()

	t.Run("legal triple", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, c.Validate("Banquetas", "Existencia", "No hay"))
		assert.NoError(t, c.Validate(
			"Alumbrado público", "Funcionamiento", "Apagado"))
	})

	t.Run("unknown theme", func(t *testing.T) {
		t.Parallel()

		err := c.Validate("Drenaje", "Existencia", "No hay")
		require.ErrorIs(t, err, catalog.ErrInvalidSelection)
	})

	t.Run("variable from another theme", func(t *testing.T) {
		t.Parallel()

		err := c.Validate("Banquetas", "Funcionamiento", "Apagado")
		require.ErrorIs(t, err, catalog.ErrInvalidSelection)
	})

	t.Run("state from another variable", func(t *testing.T) {
		t.Parallel()

		// "Sin rampas" belongs to Accesibilidad, not Existencia.
		err := c.Validate("Banquetas", "Existencia", "Sin rampas")
		require.ErrorIs(t, err, catalog.ErrInvalidSelection)
	})

	t.Run("empty selection", func(t *testing.T) {
		t.Parallel()

		err := c.Validate("", "", "")
		require.ErrorIs(t, err, catalog.ErrInvalidSelection)
	})
}

func TestCatalog_Color(t *testing.T) {
	t.Parallel()

	c := catalog.Default()

	color, ok := c.Color("Banquetas")
	require.True(t, ok)
	assert.Equal(t, "#e11d48", color)

	_, ok = c.Color("Drenaje")
	assert.False(t, ok)
}

func TestCatalog_Themes(t *testing.T) {
	t.Parallel()

	themes := catalog.Default().Themes()
	require.Len(t, themes, 4)

	// Catalog order is stable: clients build their selects from it.
	assert.Equal(t, "Banquetas", themes[0].Name)
	assert.Equal(t, "Limpieza y residuos", themes[3].Name)

	for _, theme := range themes {
		assert.NotEmpty(t, theme.Color, theme.Name)
		assert.NotEmpty(t, theme.Variables, theme.Name)

		for _, v := range theme.Variables {
			assert.NotEmpty(t, v.States, v.Name)
		}
	}
}
