package entity

import (
	"context"
	"strings"

	"github.com/spf13/cast"
)

// Op is the lifecycle transition a field pipeline runs for.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
	OpRemove
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// HookContext is handed to lifecycle hooks and validators. Configuration
// is passed explicitly at engine construction, never read from ambient
// global state.
type HookContext struct {
	Ctx context.Context

	// Params are the raw operation parameters.
	Params Params

	// Config carries the engine's configuration values.
	Config map[string]string

	// Existing is the stored record for update/remove transitions,
	// nil on create.
	Existing Record
}

// Hook derives a field value at a lifecycle transition. A hook result
// always supersedes any caller-supplied value.
type Hook func(hc HookContext) (any, error)

// Validator checks a candidate value. The returned error's message is
// surfaced as the validation failure reason for the field.
type Validator func(hc HookContext, value any) error

// Populate references a remote resolver used to replace the stored
// reference value with the fetched object when population is requested.
type Populate struct {
	// Resolver is the registry name of the remote resolver.
	Resolver string

	// Fields is the default projection requested from the resolver.
	Fields []string
}

// Field describes one attribute: validation and mutation constraints,
// lifecycle hooks and the optional populate descriptor.
type Field struct {
	name      string
	required  bool
	notEmpty  bool
	readonly  bool
	immutable bool
	lowercase bool
	trim      bool
	hidden    bool

	hooks    map[Op]Hook
	validate Validator
	populate *Populate
}

// NewField starts a field descriptor. Constraints chain in the
// declaration:
//
//	entity.NewField("name").Required().Immutable().Lowercase().Trim().NotEmpty()
func NewField(name string) *Field {
	return &Field{name: name, hooks: map[Op]Hook{}}
}

func (f *Field) Name() string { return f.name }

// Required makes the field mandatory on create.
func (f *Field) Required() *Field {
	f.required = true
	return f
}

// NotEmpty rejects empty string values.
func (f *Field) NotEmpty() *Field {
	f.notEmpty = true
	return f
}

// ReadOnly drops caller-supplied values entirely; only hooks may set the field.
func (f *Field) ReadOnly() *Field {
	f.readonly = true
	return f
}

// Immutable fixes the field at creation. Updates carrying a value for it
// keep the stored value silently, so idempotent resubmission is not rejected.
func (f *Field) Immutable() *Field {
	f.immutable = true
	return f
}

// Lowercase folds string values to lower case before validation.
func (f *Field) Lowercase() *Field {
	f.lowercase = true
	return f
}

// Trim strips surrounding whitespace from string values before validation.
func (f *Field) Trim() *Field {
	f.trim = true
	return f
}

// Hidden omits the field from default views; bypassed reads still see it.
func (f *Field) Hidden() *Field {
	f.hidden = true
	return f
}

// OnCreate registers the create transition hook.
func (f *Field) OnCreate(h Hook) *Field {
	f.hooks[OpCreate] = h
	return f
}

// OnUpdate registers the update transition hook.
func (f *Field) OnUpdate(h Hook) *Field {
	f.hooks[OpUpdate] = h
	return f
}

// OnRemove registers the remove transition hook.
func (f *Field) OnRemove(h Hook) *Field {
	f.hooks[OpRemove] = h
	return f
}

// Validate registers a custom validator, run after constraints whenever
// the field ends up with a value.
func (f *Field) Validate(v Validator) *Field {
	f.validate = v
	return f
}

// PopulateWith declares the remote resolver backing population of this field.
func (f *Field) PopulateWith(resolver string, fields ...string) *Field {
	f.populate = &Populate{Resolver: resolver, Fields: fields}
	return f
}

// fieldResult is the outcome of one field pipeline run.
type fieldResult struct {
	value     any
	set       bool
	violation *Violation
}

// apply runs the descriptor pipeline for one transition: a declared hook
// wins over any caller value; otherwise constraints vet the supplied
// value; the custom validator runs last.
func (f *Field) apply(op Op, input any, present bool, hc HookContext) (fieldResult, error) {
	var res fieldResult

	if hook, ok := f.hooks[op]; ok {
		value, err := hook(hc)
		if err != nil {
			return res, err
		}

		res.value = value
		res.set = true
	} else {
		switch {
		case !present || f.readonly:
			// Read-only fields are only ever set by hooks.
		case f.immutable && op != OpCreate:
			// Keep the stored value, do not reject resubmission.
		default:
			res.value = f.normalize(input)
			res.set = true
		}

		if op == OpCreate && f.required && !res.set {
			res.violation = &Violation{Type: "required", Field: f.name}
			return res, nil
		}
	}

	if res.set && f.notEmpty {
		if s, err := cast.ToStringE(res.value); err == nil && s == "" {
			res.violation = &Violation{Type: "empty", Field: f.name, Message: "must not be empty"}
			return res, nil
		}
	}

	if res.set && res.value != nil && f.validate != nil {
		if err := f.validate(hc, res.value); err != nil {
			if _, ok := AsError(err); ok {
				return res, err
			}

			res.violation = &Violation{Type: "invalid", Field: f.name, Message: err.Error()}
		}
	}

	return res, nil
}

func (f *Field) normalize(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}

	if f.trim {
		s = strings.TrimSpace(s)
	}

	if f.lowercase {
		s = strings.ToLower(s)
	}

	return s
}
