// Package catalog holds the fixed theme/variable/condition-state catalog
// that classifies field reports. The catalog is static configuration: it is
// compiled in, never mutated at runtime, and validated as a whole triple so
// that impossible intermediate selections can never reach the store.
package catalog

import (
	"errors"
	"fmt"
)

// ErrInvalidSelection is returned when a theme/variable/condition-state
// triple is not part of the catalog.
var ErrInvalidSelection = errors.New("invalid catalog selection")

// Variable is one observable aspect of a theme, with the ordered list of
// condition states a delegate may report for it.
type Variable struct {
	Name   string   `json:"name"`
	States []string `json:"states"`
}

// Theme groups variables under a display color used for map markers.
type Theme struct {
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	Variables []Variable `json:"variables"`
}

// Catalog is the full theme table with a name lookup.
type Catalog struct {
	themes []Theme
	byName map[string]int
}

// New builds a catalog from the given themes.
func New(themes []Theme) *Catalog {
	c := &Catalog{
		themes: themes,
		byName: make(map[string]int, len(themes)),
	}

	for i, t := range themes {
		c.byName[t.Name] = i
	}

	return c
}

// Default returns the catalog of reportable urban infrastructure themes.
func Default() *Catalog {
	return New([]Theme{
		{
			Name:  "Banquetas",
			Color: "#e11d48",
			Variables: []Variable{
				{Name: "Existencia", States: []string{
					"No hay",
					"Sí hay en malas condiciones",
					"Sí hay en pésimas condiciones",
					"Hacen falta",
				}},
				{Name: "Accesibilidad", States: []string{
					"Sin rampas",
					"Rampas dañadas",
					"Rampas funcionales",
				}},
			},
		},
		{
			Name:  "Alumbrado público",
			Color: "#0ea5e9",
			Variables: []Variable{
				{Name: "Funcionamiento", States: []string{
					"Apagado",
					"Intermitente",
					"Encendido insuficiente",
				}},
				{Name: "Postes", States: []string{
					"No hay",
					"Dañados",
					"Robados",
				}},
			},
		},
		{
			Name:  "Seguridad vial",
			Color: "#22c55e",
			Variables: []Variable{
				{Name: "Señalética", States: []string{
					"Ausente",
					"Dañada",
					"Confusa",
				}},
				{Name: "Cruces peatonales", States: []string{
					"No hay",
					"Desgastados",
					"Peligrosos",
				}},
			},
		},
		{
			Name:  "Limpieza y residuos",
			Color: "#a855f7",
			Variables: []Variable{
				{Name: "Contenedores", States: []string{
					"Insuficientes",
					"Dañados",
					"Inexistentes",
				}},
				{Name: "Acumulación", States: []string{
					"Poca",
					"Moderada",
					"Alta",
				}},
			},
		},
	})
}

// Themes returns the themes in catalog order.
func (c *Catalog) Themes() []Theme {
	return c.themes
}

// Color returns the display color for a theme.
func (c *Catalog) Color(theme string) (string, bool) {
	i, ok := c.byName[theme]
	if !ok {
		return "", false
	}

	return c.themes[i].Color, true
}

// Validate checks that theme, variable and state form a legal catalog triple.
func (c *Catalog) Validate(theme, variable, state string) error {
	i, ok := c.byName[theme]
	if !ok {
		return fmt.Errorf("%w: unknown theme %q", ErrInvalidSelection, theme)
	}

	for _, v := range c.themes[i].Variables {
		if v.Name != variable {
			continue
		}

		for _, s := range v.States {
			if s == state {
				return nil
			}
		}

		return fmt.Errorf("%w: state %q is not valid for %s/%s",
			ErrInvalidSelection, state, theme, variable)
	}

	return fmt.Errorf("%w: theme %q has no variable %q",
		ErrInvalidSelection, theme, variable)
}
