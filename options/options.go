package options

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

type (
	// Option is an option item with a default value.
	Option interface {
		Name() string
		Default() interface{}
		Validate(val interface{}) (interface{}, error)
		Parse(s string) (interface{}, error)
		setName(name string)
	}

	// OptionValues is a set of option values.
	OptionValues map[Option]interface{}

	// OptionChangeHook is called before an option value is changed,
	// returning an error rejects the change.
	OptionChangeHook func(opt Option, oldVal, newVal interface{}) error

	// Options is an option set.
	Options interface {
		SetOption(opt Option, val interface{}) error
		WithOption(opt Option, val interface{}) Options
		GetOption(opt Option) (val interface{}, ok bool)
		GetOptionDefault(opt Option) interface{}
		OptionValues() OptionValues
		AddOptionChangeHook(hook OptionChangeHook)
	}

	options struct {
		sync.RWMutex
		upstream Options
		values   OptionValues
		hooks    []OptionChangeHook
	}

	baseOption struct {
		name string
		def  interface{}
	}
)

// errors
var (
	ErrInvalidOptionValue = errors.New("invalid option value")
	ErrUnknownOption      = errors.New("unknown option")
)

var registry = struct {
	sync.RWMutex
	byName map[string]Option
}{byName: make(map[string]Option)}

// NewOptions creates an empty option set.
func NewOptions() Options {
	return NewOptionsWithUpstream(nil)
}

// NewOptionsWithValues creates an option set populated with ovs,
// invalid values are ignored.
func NewOptionsWithValues(ovs OptionValues) Options {
	opts := NewOptions()
	for opt, val := range ovs {
		opts.SetOption(opt, val)
	}
	return opts
}

// NewOptionsWithUpstream creates an option set that falls back to upstream
// for values it does not hold.
func NewOptionsWithUpstream(upstream Options) Options {
	return &options{
		upstream: upstream,
		values:   make(OptionValues),
	}
}

func (opts *options) SetOption(opt Option, val interface{}) (err error) {
	if val, err = opt.Validate(val); err != nil {
		return
	}

	opts.Lock()
	defer opts.Unlock()
	oldVal, ok := opts.values[opt]
	if !ok {
		oldVal = opt.Default()
	}
	for _, hook := range opts.hooks {
		if err = hook(opt, oldVal, val); err != nil {
			return
		}
	}
	opts.values[opt] = val
	return
}

func (opts *options) WithOption(opt Option, val interface{}) Options {
	opts.SetOption(opt, val)
	return opts
}

func (opts *options) GetOption(opt Option) (val interface{}, ok bool) {
	opts.RLock()
	val, ok = opts.values[opt]
	opts.RUnlock()
	if !ok && opts.upstream != nil {
		return opts.upstream.GetOption(opt)
	}
	return
}

func (opts *options) GetOptionDefault(opt Option) interface{} {
	if val, ok := opts.GetOption(opt); ok {
		return val
	}
	return opt.Default()
}

func (opts *options) OptionValues() OptionValues {
	opts.RLock()
	defer opts.RUnlock()
	ovs := make(OptionValues, len(opts.values))
	for opt, val := range opts.values {
		ovs[opt] = val
	}
	return ovs
}

func (opts *options) AddOptionChangeHook(hook OptionChangeHook) {
	opts.Lock()
	opts.hooks = append(opts.hooks, hook)
	opts.Unlock()
}

func (o *baseOption) Name() string {
	return o.name
}

func (o *baseOption) Default() interface{} {
	return o.def
}

func (o *baseOption) setName(name string) {
	o.name = name
}

func (o *baseOption) String() string {
	return o.name
}

// RegisterStructuredOptions names every option field of the (nested) struct
// value opts as "domain.Field" and makes it available to ParseOption.
func RegisterStructuredOptions(opts interface{}, domains []string) {
	v := reflect.ValueOf(opts)
	optionType := reflect.TypeOf((*Option)(nil)).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		name := v.Type().Field(i).Name
		fieldDomains := append(append([]string{}, domains...), name)
		if f.Type().Implements(optionType) {
			if opt, ok := f.Interface().(Option); ok && opt != nil {
				registerOption(opt, strings.Join(fieldDomains, "."))
			}
			continue
		}
		if f.Kind() == reflect.Struct {
			RegisterStructuredOptions(f.Interface(), fieldDomains)
		}
	}
}

func registerOption(opt Option, name string) {
	opt.setName(name)
	registry.Lock()
	registry.byName[strings.ToLower(name)] = opt
	registry.Unlock()
}

// ParseOption finds a registered option by its case insensitive name.
func ParseOption(name string) (Option, error) {
	registry.RLock()
	opt, ok := registry.byName[strings.ToLower(name)]
	registry.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	return opt, nil
}

// ParseOptionValue parses "name=value" into an option and its value.
func ParseOptionValue(s string) (Option, interface{}, error) {
	idx := strings.Index(s, "=")
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: %q missing '='", ErrInvalidOptionValue, s)
	}
	opt, err := ParseOption(strings.TrimSpace(s[:idx]))
	if err != nil {
		return nil, nil, err
	}
	val, err := opt.Parse(strings.TrimSpace(s[idx+1:]))
	if err != nil {
		return nil, nil, err
	}
	return opt, val, nil
}

type (
	// BoolOption is option with bool value.
	BoolOption interface {
		Option
		Value(val interface{}) bool
		ValueFrom(opts Options) bool
	}

	boolOption struct {
		baseOption
	}

	// IntOption is option with int value.
	IntOption interface {
		Option
		Value(val interface{}) int
		ValueFrom(opts Options) int
	}

	intOption struct {
		baseOption
	}

	// Uint32Option is option with uint32 value.
	Uint32Option interface {
		Option
		Value(val interface{}) uint32
		ValueFrom(opts Options) uint32
	}

	uint32Option struct {
		baseOption
	}

	// TimeDurationOption is option with time duration value.
	TimeDurationOption interface {
		Option
		Value(val interface{}) time.Duration
		ValueFrom(opts Options) time.Duration
	}

	timeDurationOption struct {
		baseOption
	}

	// StringOption is option with string value.
	StringOption interface {
		Option
		Value(val interface{}) string
		ValueFrom(opts Options) string
	}

	stringOption struct {
		baseOption
	}
)

// NewBoolOption create a bool option
func NewBoolOption(def bool) BoolOption {
	return &boolOption{baseOption{def: def}}
}

func (o *boolOption) Validate(val interface{}) (interface{}, error) {
	if v, ok := val.(bool); ok {
		return v, nil
	}
	return nil, ErrInvalidOptionValue
}

func (o *boolOption) Parse(s string) (interface{}, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, ErrInvalidOptionValue
	}
	return v, nil
}

func (o *boolOption) Value(val interface{}) bool {
	return val.(bool)
}

func (o *boolOption) ValueFrom(opts Options) bool {
	return o.Value(opts.GetOptionDefault(o))
}

// NewIntOption create an int option
func NewIntOption(def int) IntOption {
	return &intOption{baseOption{def: def}}
}

func (o *intOption) Validate(val interface{}) (interface{}, error) {
	if v, ok := val.(int); ok {
		return v, nil
	}
	return nil, ErrInvalidOptionValue
}

func (o *intOption) Parse(s string) (interface{}, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, ErrInvalidOptionValue
	}
	return v, nil
}

func (o *intOption) Value(val interface{}) int {
	return val.(int)
}

func (o *intOption) ValueFrom(opts Options) int {
	return o.Value(opts.GetOptionDefault(o))
}

// NewUint32Option create an uint32 option
func NewUint32Option(def uint32) Uint32Option {
	return &uint32Option{baseOption{def: def}}
}

func (o *uint32Option) Validate(val interface{}) (interface{}, error) {
	switch v := val.(type) {
	case uint32:
		return v, nil
	case int:
		// untyped constants
		if v >= 0 && int64(v) <= int64(^uint32(0)) {
			return uint32(v), nil
		}
	}
	return nil, ErrInvalidOptionValue
}

func (o *uint32Option) Parse(s string) (interface{}, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return nil, ErrInvalidOptionValue
	}
	return uint32(v), nil
}

func (o *uint32Option) Value(val interface{}) uint32 {
	return val.(uint32)
}

func (o *uint32Option) ValueFrom(opts Options) uint32 {
	return o.Value(opts.GetOptionDefault(o))
}

// NewTimeDurationOption create a time duration option
func NewTimeDurationOption(def time.Duration) TimeDurationOption {
	return &timeDurationOption{baseOption{def: def}}
}

func (o *timeDurationOption) Validate(val interface{}) (interface{}, error) {
	if v, ok := val.(time.Duration); ok {
		return v, nil
	}
	return nil, ErrInvalidOptionValue
}

func (o *timeDurationOption) Parse(s string) (interface{}, error) {
	v, err := time.ParseDuration(s)
	if err != nil {
		return nil, ErrInvalidOptionValue
	}
	return v, nil
}

func (o *timeDurationOption) Value(val interface{}) time.Duration {
	return val.(time.Duration)
}

func (o *timeDurationOption) ValueFrom(opts Options) time.Duration {
	return o.Value(opts.GetOptionDefault(o))
}

// NewStringOption create a string option
func NewStringOption(def string) StringOption {
	return &stringOption{baseOption{def: def}}
}

func (o *stringOption) Validate(val interface{}) (interface{}, error) {
	if v, ok := val.(string); ok {
		return v, nil
	}
	return nil, ErrInvalidOptionValue
}

func (o *stringOption) Parse(s string) (interface{}, error) {
	return s, nil
}

func (o *stringOption) Value(val interface{}) string {
	return val.(string)
}

func (o *stringOption) ValueFrom(opts Options) string {
	return o.Value(opts.GetOptionDefault(o))
}
