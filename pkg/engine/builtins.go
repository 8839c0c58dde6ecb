package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/bild/pkg/block"
	"github.com/chazu/bild/pkg/graph"
	"github.com/chazu/bild/pkg/kernel"
	"github.com/chazu/bild/pkg/scene"
	"github.com/chazu/bild/pkg/wfc"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms scene source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: keep-out -> keep_out
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpFace wraps a block.Face so it can be returned from `face` and
// consumed by `defblock`.
type sexpFace struct {
	face block.Face
}

func (f *sexpFace) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(face %s)", f.face.Interface)
}
func (f *sexpFace) Type() *zygo.RegisteredType { return nil }

// sexpBlock wraps a declared brick.
type sexpBlock struct {
	brick block.Brick
}

func (b *sexpBlock) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(defblock %q)", b.brick.Symbol())
}
func (b *sexpBlock) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel.Solid built by the geometry builtins.
type sexpSolid struct {
	solid kernel.Solid
	desc  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return "(" + s.desc + ")"
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. The first
// argument and a trailing keyword are always positional, so in
// (face :stud :orientation 90) the interface is :stud.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok && i+1 < len(args) && i > 0 {
			result.kw[name] = args[i+1]
			i += 2
			continue
		}
		result.positional = append(result.positional, args[i])
		i++
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a whole number. Floats with a fractional part are rejected.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected whole number, got %g", v.Val)
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_stud) and plain strings ("stud").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toOrientation accepts a degree count (90) or a string ("o90").
func toOrientation(s zygo.Sexp) (block.Orientation, error) {
	if str, err := toKeywordString(s); err == nil {
		return block.ParseOrientation(str)
	}
	deg, err := toInt(s)
	if err != nil {
		return block.O0, err
	}
	return block.OrientationFromDegrees(deg)
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toSize converts a vector of positive whole numbers to a block size.
func toSize(s zygo.Sexp) (block.Size, error) {
	v, err := toVec3(s)
	if err != nil {
		return block.Size{}, err
	}
	dims := [3]float64{v.X, v.Y, v.Z}
	var out [3]uint32
	for i, d := range dims {
		if d < 1 || d != math.Trunc(d) || d > math.MaxUint32 {
			return block.Size{}, fmt.Errorf("size %s: every dimension must be a positive whole number", (&sexpVec3{vec: v}).SexpString(nil))
		}
		out[i] = uint32(d)
	}
	return block.Size{X: out[0], Y: out[1], Z: out[2]}, nil
}

// toSolid extracts a solid built by a geometry builtin.
func toSolid(s zygo.Sexp) (*sexpSolid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// toFace extracts a face built by `face`.
func toFace(s zygo.Sexp) (block.Face, error) {
	if f, ok := s.(*sexpFace); ok {
		return f.face, nil
	}
	return block.Face{}, fmt.Errorf("expected face, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene DSL builtins into a zygomys
// environment. They populate sc during evaluation and build obstacle solids
// with k.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *scene.Scene, k kernel.Kernel) {

	// -----------------------------------------------------------------------
	// (grid 3 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("grid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("grid requires width, height and depth, got %d arguments", len(args))
		}
		var dims [3]int
		for i, a := range args {
			n, err := toInt(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("grid: %w", err)
			}
			if n < 1 {
				return zygo.SexpNull, fmt.Errorf("grid: every dimension must be at least 1, got %d", n)
			}
			dims[i] = n
		}
		if sc.Width != 0 {
			return zygo.SexpNull, fmt.Errorf("grid: already declared as %dx%dx%d", sc.Width, sc.Height, sc.Depth)
		}
		sc.Width, sc.Height, sc.Depth = dims[0], dims[1], dims[2]
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: v3.Vec{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (face :stud :orientation 90)
	// -----------------------------------------------------------------------
	env.AddFunction("face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("face requires one interface keyword")
		}
		ifName, err := toKeywordString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: %w", err)
		}
		iface, err := block.ParseInterface(ifName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: %w", err)
		}

		o := block.O0
		if v, ok := pa.kw["orientation"]; ok {
			o, err = toOrientation(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("face: orientation: %w", err)
			}
		}
		return &sexpFace{face: block.NewFace(iface, o)}, nil
	})

	// -----------------------------------------------------------------------
	// (defblock "stud" :size (vec3 1 1 1) :ranking 2 :faces (list ...))
	// -----------------------------------------------------------------------
	env.AddFunction("defblock", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("defblock requires a name argument")
		}
		blockName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defblock: name: %w", err)
		}
		if blockName == "" {
			return zygo.SexpNull, fmt.Errorf("defblock: name must not be empty")
		}

		var size block.Size
		if v, ok := pa.kw["size"]; ok {
			size, err = toSize(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defblock %q: %w", blockName, err)
			}
		}

		var faces []block.Face
		if v, ok := pa.kw["faces"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defblock %q: faces: %w", blockName, err)
			}
			for _, item := range items {
				f, err := toFace(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("defblock %q: face entry: %w", blockName, err)
				}
				faces = append(faces, f)
			}
		}

		brick := block.NewBrick(blockName, size, faces...)
		if v, ok := pa.kw["ranking"]; ok {
			r, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defblock %q: ranking: %w", blockName, err)
			}
			if r <= 0 || math.IsInf(r, 0) || math.IsNaN(r) {
				return zygo.SexpNull, fmt.Errorf("defblock %q: ranking must be positive, got %g", blockName, r)
			}
			brick = brick.WithRanking(float32(r))
		}

		for _, b := range sc.Blocks {
			if b.Symbol() == blockName {
				return zygo.SexpNull, fmt.Errorf("defblock: duplicate block %q", blockName)
			}
		}
		sc.Blocks = append(sc.Blocks, brick)
		return &sexpBlock{brick: brick}, nil
	})

	// -----------------------------------------------------------------------
	// (gravity)
	// -----------------------------------------------------------------------
	env.AddFunction("gravity", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 0 {
			return zygo.SexpNull, fmt.Errorf("gravity takes no arguments")
		}
		sc.Gravity = true
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// Geometry: (box 1 2 1) (cylinder 2 0.5) (sphere 1)
	//           (union a b ...) (difference a b) (intersection a b ...)
	//           (translate s (vec3 ...)) (rotate s (vec3 ...))
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		dims, err := positiveFloats("box", args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{
			solid: k.Box(dims[0], dims[1], dims[2]),
			desc:  fmt.Sprintf("box %g %g %g", dims[0], dims[1], dims[2]),
		}, nil
	})

	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		dims, err := positiveFloats("cylinder", args, 2)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{
			solid: k.Cylinder(dims[0], dims[1], 32),
			desc:  fmt.Sprintf("cylinder %g %g", dims[0], dims[1]),
		}, nil
	})

	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		dims, err := positiveFloats("sphere", args, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{solid: k.Sphere(dims[0]), desc: fmt.Sprintf("sphere %g", dims[0])}, nil
	})

	fold := func(op string, least int, f func(a, b kernel.Solid) kernel.Solid) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < least {
				return zygo.SexpNull, fmt.Errorf("%s requires at least %d solids, got %d", op, least, len(args))
			}
			acc, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			out := acc.solid
			for _, a := range args[1:] {
				s, err := toSolid(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
				}
				out = f(out, s.solid)
			}
			return &sexpSolid{solid: out, desc: op}, nil
		}
	}
	env.AddFunction("union", fold("union", 2, k.Union))
	env.AddFunction("intersection", fold("intersection", 2, k.Intersection))
	env.AddFunction("difference", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("difference requires exactly 2 solids, got %d", len(args))
		}
		return fold("difference", 2, k.Difference)(env, name, args)
	})

	transform := func(op string, f func(s kernel.Solid, x, y, z float64) kernel.Solid) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid and a vec3", op)
			}
			s, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			v, err := toVec3(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			return &sexpSolid{solid: f(s.solid, v.X, v.Y, v.Z), desc: op + " " + s.desc}, nil
		}
	}
	env.AddFunction("translate", transform("translate", k.Translate))
	env.AddFunction("rotate", transform("rotate", k.Rotate))

	// -----------------------------------------------------------------------
	// (keep-out "pillar" solid)
	// -----------------------------------------------------------------------
	env.AddFunction("keep_out", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("keep-out requires a name and a solid")
		}
		obsName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("keep-out: name: %w", err)
		}
		s, err := toSolid(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("keep-out %q: %w", obsName, err)
		}
		sc.Obstacles = append(sc.Obstacles, wfc.Obstacle{Name: obsName, Solid: s.solid})
		return s, nil
	})

	// -----------------------------------------------------------------------
	// (rule :lego)
	// -----------------------------------------------------------------------
	env.AddFunction("rule", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("rule requires one rule name")
		}
		ruleName, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rule: %w", err)
		}
		if _, ok := wfc.RuleByName(ruleName); !ok {
			return zygo.SexpNull, fmt.Errorf("rule: unknown rule %q (want lego or contact)", ruleName)
		}
		for _, r := range sc.Rules {
			if r == ruleName {
				return zygo.SexpNull, nil
			}
		}
		sc.Rules = append(sc.Rules, ruleName)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (seed 7) (traversal :entropy) (connect-scope :adjacent)
	// -----------------------------------------------------------------------
	env.AddFunction("seed", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("seed requires one number")
		}
		n, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("seed: %w", err)
		}
		if n < 0 {
			return zygo.SexpNull, fmt.Errorf("seed must not be negative, got %d", n)
		}
		seed := uint64(n)
		sc.Seed = &seed
		return zygo.SexpNull, nil
	})

	env.AddFunction("traversal", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("traversal requires one keyword")
		}
		s, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("traversal: %w", err)
		}
		t, err := wfc.ParseTraversal(s)
		if err != nil {
			return zygo.SexpNull, err
		}
		sc.Traversal = &t
		return zygo.SexpNull, nil
	})

	env.AddFunction("connect_scope", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("connect-scope requires one keyword")
		}
		s, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect-scope: %w", err)
		}
		c, err := wfc.ParseConnectScope(s)
		if err != nil {
			return zygo.SexpNull, err
		}
		sc.ConnectScope = &c
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (start-at 0 0 0)
	// -----------------------------------------------------------------------
	env.AddFunction("start_at", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("start-at requires x, y and z")
		}
		var c [3]int
		for i, a := range args {
			n, err := toInt(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("start-at: %w", err)
			}
			if n < 0 {
				return zygo.SexpNull, fmt.Errorf("start-at: coordinates must not be negative")
			}
			c[i] = n
		}
		sc.StartAt = append(sc.StartAt, graph.Position{X: c[0], Y: c[1], Z: c[2]})
		return zygo.SexpNull, nil
	})
}

// positiveFloats reads exactly n positive numbers.
func positiveFloats(op string, args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires %d numbers, got %d", op, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if f <= 0 {
			return nil, fmt.Errorf("%s: dimensions must be positive, got %g", op, f)
		}
		out[i] = f
	}
	return out, nil
}
