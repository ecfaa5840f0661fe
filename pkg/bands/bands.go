// Package bands holds the built-in band types.
//
// Every band embeds render.Base and overrides only the hooks it draws.
// Style overrides from a band spec are merged onto each type's defaults
// with render.DecodeStyle; per-type options come from spec properties.
package bands

import (
	"fmt"
	"strconv"

	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/render"
	"github.com/daviddao/tlview/pkg/scene"
)

// NewRegistry returns a registry with every built-in band type.
func NewRegistry() *render.Registry {
	r := render.NewRegistry()
	Register(r)
	return r
}

// Register adds the built-in band types to r.
func Register(r *render.Registry) {
	r.Register(model.TypeEventBand, NewEventBand)
	r.Register(model.TypeSpacer, NewSpacer)
	r.Register(model.TypeTimescale, NewTimescale)
	r.Register(model.TypeWallclockLocator, NewWallclockLocator)
	r.Register(model.TypeLocationTracker, NewLocationTracker)
	r.Register(model.TypeHorizontalSelection, NewHorizontalSelection)
	r.Register(model.TypeNoDataZone, NewNoDataZone)
}

func boolProperty(spec model.BandSpec, key string, fallback bool) (bool, error) {
	v, ok := spec.Properties[key]
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("property %s: %w", key, err)
	}
	return b, nil
}

// hatchPattern is a diagonal hatch definition used for uncovered and
// no-data ranges.
func hatchPattern(id, color string) *scene.Pattern {
	return &scene.Pattern{
		ID: id, W: 6, H: 6, Rotate: 45,
		Children: []scene.Node{
			&scene.Line{X1: 0, Y1: 0, X2: 0, Y2: 6, Style: scene.Style{Stroke: color, StrokeWidth: 1}},
		},
	}
}
