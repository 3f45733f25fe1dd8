package pep508

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarker_Evaluate(t *testing.T) {
	env := DefaultEnvironment()

	tests := []struct {
		marker string
		want   bool
	}{
		{`python_version < "3.0"`, false},
		{`python_version < "3.11"`, true},
		{`python_version >= "3.8"`, true},
		{`python_version == "3.10"`, true},
		{`python_version == "3.1"`, false},
		{`python_version != "3.10"`, false},
		{`python_version ~= "3.8"`, true},
		{`python_full_version >= "3.10.0"`, true},
		{`"3.11" > python_version`, true},
		{`platform_python_implementation == "CPython"`, true},
		{`platform_python_implementation != "PyPy"`, true},
		{`implementation_name == "pypy"`, false},
		{`sys_platform == "win32"`, false},
		{`sys_platform != "win32"`, true},
		{`os_name == 'posix'`, true},
		{`"linux" in sys_platform`, true},
		{`"win" not in sys_platform`, true},
		{`platform_system in "Windows Darwin"`, false},
		{`extra == "test"`, false},
		{`python_version < "3.11" and sys_platform == "linux"`, true},
		{`python_version < "3.8" or sys_platform == "linux"`, true},
		{`python_version < "3.8" or sys_platform == "win32" and os_name == "posix"`, false},
		{`(python_version < "3.8" or sys_platform == "linux") and os_name == "posix"`, true},
		{`python_implementation == "CPython"`, true},
		{`platform.machine == "x86_64"`, true},
		{`implementation_name === "CPYTHON"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			m, err := ParseMarker(tt.marker)
			require.NoError(t, err)
			got, err := m.Evaluate(env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarker_ExtraNormalization(t *testing.T) {
	env, err := DefaultEnvironment().With(map[string]string{Extra: "Socks_Proxy"})
	require.NoError(t, err)

	m, err := ParseMarker(`extra == "socks-proxy"`)
	require.NoError(t, err)

	got, err := m.Evaluate(env)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMarker_UndefinedVariable(t *testing.T) {
	env := Environment{PythonVersion: "3.10"}

	m, err := ParseMarker(`python_version >= "3.8" or sys_platform == "linux"`)
	require.NoError(t, err)

	_, err = m.Evaluate(env)
	assert.True(t, errors.Is(err, ErrUndefinedVariable), "got %v", err)
}

func TestMarker_UndefinedComparison(t *testing.T) {
	m, err := ParseMarker(`sys_platform ~= "linux"`)
	require.NoError(t, err)

	_, err = m.Evaluate(DefaultEnvironment())
	assert.ErrorIs(t, err, ErrUndefinedComparison)
}

func TestParseMarker_Errors(t *testing.T) {
	tests := []string{
		``,
		`python_version`,
		`python_version <`,
		`python_version < "3.0`,
		`python_version < "3.0" and`,
		`(python_version < "3.0"`,
		`python_version < "3.0")`,
		`unknown_var == "x"`,
		`python_version not "3.0"`,
		`python_version % "3.0"`,
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseMarker(input)
			var syn *SyntaxError
			assert.ErrorAs(t, err, &syn)
		})
	}
}

func TestMarker_String(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`python_version<'3.11'`, `python_version < "3.11"`},
		{`os.name=="nt"`, `os_name == "nt"`},
		{`(extra=="a" or extra=="b") and python_version>"3"`, `(extra == "a" or extra == "b") and python_version > "3"`},
		{`"win" not in sys_platform`, `"win" not in sys_platform`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := ParseMarker(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.String())
		})
	}
}

func TestMarker_Variables(t *testing.T) {
	m, err := ParseMarker(`python_version < "3.11" and (sys.platform == "linux" or python_version > "2")`)
	require.NoError(t, err)
	assert.Equal(t, []string{PythonVersion, SysPlatform}, m.Variables())
}
