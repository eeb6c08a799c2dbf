// Package shaders provides embedded GLSL shader sources.
package shaders

import (
	_ "embed"
	"strings"
)

const includeNoise = `#include "noise.glsl"`

//go:embed noise.glsl
var noiseSource string

//go:embed particle_static.vert
var staticVertex string

//go:embed particle_morph.vert
var morphVertex string

// PlainVertexShader draws un-animated particles.
//
//go:embed particle_plain.vert
var PlainVertexShader string

// FragmentShader is shared by every particle program.
//
//go:embed particle.frag
var FragmentShader string

// StaticVertexShader animates a single particle set.
var StaticVertexShader = expand(staticVertex)

// MorphVertexShader animates the blend between two particle sets.
var MorphVertexShader = expand(morphVertex)

// expand inlines the shared noise functions; GLSL has no include directive.
func expand(src string) string {
	return strings.Replace(src, includeNoise, noiseSource, 1)
}
