package options

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNested struct {
	Size IntOption
}

type testOptions struct {
	Enabled BoolOption
	Timeout TimeDurationOption
	Name    StringOption
	Nested  testNested
}

var testOpts = testOptions{
	Enabled: NewBoolOption(true),
	Timeout: NewTimeDurationOption(time.Second),
	Name:    NewStringOption("none"),
	Nested: testNested{
		Size: NewIntOption(8),
	},
}

func init() {
	RegisterStructuredOptions(testOpts, []string{"Test"})
}

func TestDefaultsAndValues(t *testing.T) {
	opts := NewOptions()
	assert.True(t, testOpts.Enabled.ValueFrom(opts))
	assert.Equal(t, time.Second, testOpts.Timeout.ValueFrom(opts))

	require.NoError(t, opts.SetOption(testOpts.Enabled, false))
	assert.False(t, testOpts.Enabled.ValueFrom(opts))

	err := opts.SetOption(testOpts.Enabled, "no")
	assert.True(t, errors.Is(err, ErrInvalidOptionValue))
	assert.False(t, testOpts.Enabled.ValueFrom(opts))
}

func TestUpstream(t *testing.T) {
	up := NewOptions().WithOption(testOpts.Nested.Size, 32)
	opts := NewOptionsWithUpstream(up)
	assert.Equal(t, 32, testOpts.Nested.Size.ValueFrom(opts))

	opts.SetOption(testOpts.Nested.Size, 64)
	assert.Equal(t, 64, testOpts.Nested.Size.ValueFrom(opts))
	assert.Equal(t, 32, testOpts.Nested.Size.ValueFrom(up))
}

func TestChangeHook(t *testing.T) {
	opts := NewOptions()
	rejected := errors.New("rejected")
	opts.AddOptionChangeHook(func(opt Option, oldVal, newVal interface{}) error {
		if opt == testOpts.Name && newVal == "bad" {
			return rejected
		}
		return nil
	})
	require.NoError(t, opts.SetOption(testOpts.Name, "good"))
	assert.Equal(t, rejected, opts.SetOption(testOpts.Name, "bad"))
	assert.Equal(t, "good", testOpts.Name.ValueFrom(opts))
}

func TestParseOptionValue(t *testing.T) {
	opt, val, err := ParseOptionValue("test.nested.size = 128")
	require.NoError(t, err)
	assert.Equal(t, testOpts.Nested.Size, opt)
	assert.Equal(t, 128, val)
	assert.Equal(t, "Test.Nested.Size", opt.Name())

	opt, val, err = ParseOptionValue("Test.Timeout=250ms")
	require.NoError(t, err)
	assert.Equal(t, testOpts.Timeout, opt)
	assert.Equal(t, 250*time.Millisecond, val)

	_, _, err = ParseOptionValue("Test.Missing=1")
	assert.True(t, errors.Is(err, ErrUnknownOption))

	_, _, err = ParseOptionValue("Test.Enabled")
	assert.True(t, errors.Is(err, ErrInvalidOptionValue))

	_, _, err = ParseOptionValue("Test.Enabled=maybe")
	assert.True(t, errors.Is(err, ErrInvalidOptionValue))
}
