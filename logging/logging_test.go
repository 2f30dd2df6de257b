package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	l := New("listmodel-test", "debug")
	require.NotNil(t, l)
	l.Debug("hello")

	require.NoError(t, SetLogLevel("listmodel-test", "error"))
	require.Error(t, SetLogLevel("no-such-subsystem", "debug"))
}
