package crucible

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tinderlang/tinder/value"
)

// Snapshot serializes the flattened bindings of c (this frame only — the
// host owns parent frames) to YAML, for `cmd/tinder run --seed` initial
// Crucible loading and save/resume state.
func (c *Crucible) Snapshot() ([]byte, error) {
	out := make(map[string]interface{}, len(c.vars))
	for k, v := range c.vars {
		out[k] = toYAML(v)
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "marshal crucible snapshot")
	}
	return data, nil
}

// LoadSnapshot populates c's own frame from YAML produced by Snapshot (or
// hand-written seed data). LoadSnapshot uses ForceSet, so a seed file can't
// trip the constant-rewrite fatal meant for script code: an existing
// constant or protected entry is overwritten and keeps its flag.
func (c *Crucible) LoadSnapshot(data []byte) error {
	var in map[string]interface{}
	if err := yaml.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, "unmarshal crucible snapshot")
	}
	for k, v := range in {
		c.ForceSet(k, fromYAML(v))
	}
	return nil
}

func toYAML(v value.Value) interface{} {
	switch c := v.(type) {
	case nil, value.None:
		return nil
	case value.Bool:
		return bool(c)
	case value.Number:
		if c.IsInt {
			return c.Int64()
		}
		return c.F
	case value.String:
		return string(c)
	case *value.Array:
		out := make([]interface{}, len(c.Elems))
		for i, e := range c.Elems {
			out[i] = toYAML(e)
		}
		return out
	case *value.Table:
		out := make(map[string]interface{}, c.Len())
		for _, k := range c.Keys() {
			v, _ := c.Get(k)
			out[k] = toYAML(v)
		}
		return out
	default:
		// callables/handles are host-owned and never round-trip.
		return nil
	}
}

func fromYAML(v interface{}) value.Value {
	switch c := v.(type) {
	case nil:
		return value.Nothing
	case bool:
		return value.Bool(c)
	case int:
		return value.Int(int64(c))
	case int64:
		return value.Int(c)
	case float64:
		return value.Float(c)
	case string:
		return value.String(c)
	case []interface{}:
		elems := make([]value.Value, len(c))
		for i, e := range c {
			elems[i] = fromYAML(e)
		}
		return value.NewArray(elems...)
	case map[string]interface{}:
		t := value.NewTable()
		for k, e := range c {
			t.Set(k, fromYAML(e))
		}
		return t
	default:
		return value.Nothing
	}
}
