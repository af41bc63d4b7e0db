// Package newtab serves the new-tab page: the built-in quotes, the random
// quote pick and search box resolution.
package newtab

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/akashicode/quoteshelf/internal/library"
)

//go:embed builtin.yaml
var builtinYAML []byte

var builtin = mustParseBuiltin(builtinYAML)

func mustParseBuiltin(data []byte) []library.Quote {
	quotes, err := parseBuiltin(data)
	if err != nil {
		panic(err)
	}
	return quotes
}

func parseBuiltin(data []byte) ([]library.Quote, error) {
	var quotes []library.Quote
	if err := yaml.Unmarshal(data, &quotes); err != nil {
		return nil, fmt.Errorf("parse built-in quotes: %w", err)
	}
	for i := range quotes {
		quotes[i].Enabled = true
	}
	return quotes, nil
}

// Builtin returns a copy of the quotes shipped with the new-tab page.
func Builtin() []library.Quote {
	out := make([]library.Quote, len(builtin))
	copy(out, builtin)
	return out
}
