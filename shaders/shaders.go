// Package shaders embeds the WGSL compute shaders for the particle and
// fiber stages.
package shaders

import (
	_ "embed"
)

//go:embed simulate.wgsl
var SimulateWGSL string

//go:embed fibers.wgsl
var FibersWGSL string
