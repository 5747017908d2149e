package scenario

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/JerrettDavis/TinyBDD-sub003/internal/pipeline"
)

// OpFactory binds a step declaration's args to an executable step
// function. Factories validate their args eagerly so misconfigured
// scenarios fail at build time, not mid-run.
type OpFactory func(args map[string]any) (pipeline.Func[State], error)

// Registry maps op names used in scenario files to factories.
type Registry struct {
	ops map[string]OpFactory
}

// NewRegistry creates a registry with the built-in ops registered:
// set, add, remove, sleep, fail, assert_eq, assert_present.
func NewRegistry() *Registry {
	r := &Registry{ops: make(map[string]OpFactory)}

	r.Register("set", opSet)
	r.Register("add", opAdd)
	r.Register("remove", opRemove)
	r.Register("sleep", opSleep)
	r.Register("fail", opFail)
	r.Register("assert_eq", opAssertEq)
	r.Register("assert_present", opAssertPresent)

	return r
}

// Register adds or replaces an op factory.
func (r *Registry) Register(name string, factory OpFactory) {
	r.ops[name] = factory
}

// Build resolves an op name and binds its args.
func (r *Registry) Build(op string, args map[string]any) (pipeline.Func[State], error) {
	factory, ok := r.ops[op]
	if !ok {
		return nil, fmt.Errorf("unknown op %q", op)
	}

	fn, err := factory(args)
	if err != nil {
		return nil, fmt.Errorf("op %q: %w", op, err)
	}
	return fn, nil
}

// Known reports whether an op name is registered.
func (r *Registry) Known(op string) bool {
	_, ok := r.ops[op]
	return ok
}

// opSet stores a value under a key.
// Args: key (string, required), value (any, required).
func opSet(args map[string]any) (pipeline.Func[State], error) {
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}
	value, ok := args["value"]
	if !ok {
		return nil, fmt.Errorf("value is required")
	}

	return func(_ context.Context, s State) (State, error) {
		next := s.Clone()
		next[key] = value
		return next, nil
	}, nil
}

// opAdd adds a numeric delta to the value under a key.
// Args: key (string, required), delta (number, required).
// A missing key counts as zero.
func opAdd(args map[string]any) (pipeline.Func[State], error) {
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}
	delta, err := numberArg(args, "delta")
	if err != nil {
		return nil, err
	}

	return func(_ context.Context, s State) (State, error) {
		current := 0.0
		if v, ok := s[key]; ok {
			n, ok := asNumber(v)
			if !ok {
				return s, fmt.Errorf("add: key %q holds non-numeric value %v", key, v)
			}
			current = n
		}

		next := s.Clone()
		next[key] = normalizeNumber(current + delta)
		return next, nil
	}, nil
}

// opRemove deletes a key.
// Args: key (string, required).
func opRemove(args map[string]any) (pipeline.Func[State], error) {
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}

	return func(_ context.Context, s State) (State, error) {
		next := s.Clone()
		delete(next, key)
		return next, nil
	}, nil
}

// opSleep blocks for a duration, honoring the step's context.
// Args: duration (string, required, time.ParseDuration syntax).
func opSleep(args map[string]any) (pipeline.Func[State], error) {
	raw, err := stringArg(args, "duration")
	if err != nil {
		return nil, err
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	return func(ctx context.Context, s State) (State, error) {
		select {
		case <-time.After(d):
			return s, nil
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}, nil
}

// opFail always fails with a generic (non-assertion) fault.
// Args: message (string, optional).
func opFail(args map[string]any) (pipeline.Func[State], error) {
	message := "forced failure"
	if raw, ok := args["message"]; ok {
		m, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("message must be a string, got %T", raw)
		}
		message = m
	}

	return func(_ context.Context, s State) (State, error) {
		return s, fmt.Errorf("%s", message)
	}, nil
}

// opAssertEq fails with an assertion fault unless the value under key
// equals the expected value.
// Args: key (string, required), value (any, required).
func opAssertEq(args map[string]any) (pipeline.Func[State], error) {
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}
	want, ok := args["value"]
	if !ok {
		return nil, fmt.Errorf("value is required")
	}

	return func(_ context.Context, s State) (State, error) {
		got, ok := s[key]
		if !ok {
			return s, pipeline.NewAssertionError("key %q not present", key)
		}
		if !looseEqual(got, want) {
			return s, pipeline.NewAssertionError("key %q: expected %v, got %v", key, want, got)
		}
		return s, nil
	}, nil
}

// opAssertPresent fails with an assertion fault unless the key exists.
// Args: key (string, required).
func opAssertPresent(args map[string]any) (pipeline.Func[State], error) {
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}

	return func(_ context.Context, s State) (State, error) {
		if _, ok := s[key]; !ok {
			return s, pipeline.NewAssertionError("key %q not present", key)
		}
		return s, nil
	}, nil
}

func stringArg(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok {
		return "", fmt.Errorf("%s is required", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", name, raw)
	}
	if s == "" {
		return "", fmt.Errorf("%s must be non-empty", name)
	}
	return s, nil
}

func numberArg(args map[string]any, name string) (float64, error) {
	raw, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	n, ok := asNumber(raw)
	if !ok {
		return 0, fmt.Errorf("%s must be a number, got %T", name, raw)
	}
	return n, nil
}

// asNumber widens the numeric types the YAML decoder produces.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// normalizeNumber stores whole results as int so assert_eq comparisons
// against YAML integer literals behave as written.
func normalizeNumber(n float64) any {
	if n == float64(int64(n)) {
		return int(int64(n))
	}
	return n
}

// looseEqual compares values with numeric widening, so YAML's int and
// the engine's computed numbers compare as expected.
func looseEqual(got, want any) bool {
	if gn, ok := asNumber(got); ok {
		if wn, ok := asNumber(want); ok {
			return gn == wn
		}
	}
	return reflect.DeepEqual(got, want)
}
