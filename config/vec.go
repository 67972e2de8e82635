package config

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// Vec3 is a 3-vector in configuration files. It accepts a YAML sequence
// [x, y, z] or the literal "(x, y, z)".
type Vec3 struct {
	X, Y, Z float64
}

// Vec converts to an r3 vector.
func (v Vec3) Vec() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// ParseVec3 parses "(x, y, z)". Parentheses are optional and the components
// may be separated by commas or spaces.
func ParseVec3(s string) (Vec3, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")
	fields := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) != 3 {
		return Vec3{}, fmt.Errorf("%w: vector %q needs 3 components", ErrConfig, s)
	}
	var xyz [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Vec3{}, fmt.Errorf("%w: vector %q: %w", ErrConfig, s, err)
		}
		xyz[i] = v
	}
	return Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// UnmarshalText is used by the parameter file reader.
func (v *Vec3) UnmarshalText(text []byte) error {
	parsed, err := ParseVec3(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v *Vec3) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var xyz []float64
		if err := node.Decode(&xyz); err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrConfig, node.Line, err)
		}
		if len(xyz) != 3 {
			return fmt.Errorf("%w: line %d: vector needs 3 components, got %d", ErrConfig, node.Line, len(xyz))
		}
		*v = Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		return nil
	case yaml.ScalarNode:
		return v.UnmarshalText([]byte(node.Value))
	}
	return fmt.Errorf("%w: line %d: malformed vector", ErrConfig, node.Line)
}

func (v Vec3) MarshalYAML() (any, error) {
	return []float64{v.X, v.Y, v.Z}, nil
}
