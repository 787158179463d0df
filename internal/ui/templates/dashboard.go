// Package templates renders the dashboard page shell. Panels start empty and
// are filled by the /sse/dashboard stream.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.943 generate

import (
	"encoding/json"

	"chocosales-dashboard/internal/models"
)

// refresh is the Datastar action run on load and on every filter change.
const refresh = "@get('/sse/dashboard')"

// initialSignals declares every filter as an empty selection so the first
// request covers the whole dataset.
func initialSignals() string {
	signals := make(map[string][]string, len(models.Fields))
	for _, field := range models.Fields {
		signals[string(field)] = []string{}
	}
	// A map of string slices always marshals.
	out, _ := json.Marshal(signals)
	return string(out)
}
