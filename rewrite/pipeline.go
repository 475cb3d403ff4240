package rewrite

import (
	"fmt"
	"log"

	"github.com/BurntSushi/toml"

	"github.com/mrvortex/hedge/mesh"
	"github.com/mrvortex/hedge/symbolic"
)

// Options controls the optional stages of the pipeline.
type Options struct {
	// ContractInverseMass enables fusing inverse-mass applications into
	// the operators they wrap.
	ContractInverseMass bool `toml:"contract_inverse_mass"`
	// QuadMinDegrees configures the known quadrature tags and their minimum
	// integration degrees. Upsamplers to a tag with degree zero are
	// stripped; upsamplers to an unknown tag are stripped with a warning.
	QuadMinDegrees map[string]int `toml:"quad_min_degrees"`
	// Warnf receives non-fatal diagnostics. Defaults to log.Printf.
	Warnf func(format string, args ...any) `toml:"-"`
}

// LoadOptions reads pipeline options from a TOML file.
func LoadOptions(path string) (Options, error) {
	var opts Options
	if _, err := toml.DecodeFile(path, &opts); err != nil {
		return Options{}, fmt.Errorf("loading pipeline options from %s: %w", path, err)
	}
	for tag, deg := range opts.QuadMinDegrees {
		if deg < 0 {
			return Options{}, fmt.Errorf("quadrature tag %q: negative minimum degree %d", tag, deg)
		}
	}
	return opts, nil
}

// CompiledTree is the result of a pipeline run, ready for execution.
type CompiledTree struct {
	Root       symbolic.Expr
	Types      *symbolic.TypeDict
	Dimensions int
}

// Compile runs the full rewrite pipeline over expr for the given mesh.
// The stage order is load-bearing: specialization needs upsamplers still
// classifiable, boundary-condition substitution needs specialized boundary
// fluxes, folding needs the substituted zeros, and the contractor needs the
// folded tree.
func Compile(expr symbolic.Expr, types *symbolic.TypeDict, m *mesh.Mesh, opts Options) (*CompiledTree, error) {
	warnf := opts.Warnf
	if warnf == nil {
		warnf = log.Printf
	}

	e, err := Bind(expr, warnf)
	if err != nil {
		return nil, fmt.Errorf("binding operators: %w", err)
	}
	if e, err = RemoveQuadUpsamplers(e, opts.QuadMinDegrees, warnf); err != nil {
		return nil, fmt.Errorf("removing quadrature upsamplers: %w", err)
	}
	if e, err = Specialize(e, types); err != nil {
		return nil, fmt.Errorf("specializing operators: %w", err)
	}
	if e, err = RewriteBCToFlux(e); err != nil {
		return nil, fmt.Errorf("rewriting boundary conditions: %w", err)
	}
	if e, err = Fold(e); err != nil {
		return nil, fmt.Errorf("folding constants: %w", err)
	}
	if e, err = KillDeadFlux(e, m); err != nil {
		return nil, fmt.Errorf("eliminating dead boundary fluxes: %w", err)
	}
	if opts.ContractInverseMass {
		if e, err = ContractInverseMass(e); err != nil {
			return nil, fmt.Errorf("contracting inverse mass: %w", err)
		}
	}
	if e, err = JoinDerivatives(e); err != nil {
		return nil, fmt.Errorf("joining derivatives: %w", err)
	}
	if err = CheckDimensions(e, m.Dimensions); err != nil {
		return nil, err
	}
	if e, err = CompileFluxKernels(e); err != nil {
		return nil, err
	}

	return &CompiledTree{Root: e, Types: types, Dimensions: m.Dimensions}, nil
}
