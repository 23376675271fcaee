package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/grouptoolkit/pkg/config"
)

func TestParseFlatString(t *testing.T) {
	d, err := config.ParseFlatString("TRANSPORT(bind=0.0.0.0:7800):RELIABLE_DELIVERY:STATE_TRANSFER(timeout=5000)")
	require.NoError(t, err)
	require.Len(t, d.Layers, 3)
	require.Equal(t, "TRANSPORT", d.Layers[0].Name)
	require.Equal(t, "0.0.0.0:7800", d.Layers[0].Properties["bind"])
	require.Equal(t, "RELIABLE_DELIVERY", d.Layers[1].Name)
	require.Empty(t, d.Layers[1].Properties)
	require.Equal(t, "5000", d.Layers[2].Properties["timeout"])
}

func TestParseFlatString_VariableSubstitution(t *testing.T) {
	require.NoError(t, os.Setenv("GROUPTOOLKIT_TEST_BIND", "10.0.0.1:7800"))
	defer os.Unsetenv("GROUPTOOLKIT_TEST_BIND")

	d, err := config.ParseFlatString("TRANSPORT(bind=${GROUPTOOLKIT_TEST_BIND:0.0.0.0:7800})")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:7800", d.Layers[0].Properties["bind"])
}

func TestParseFlatString_FallsBackToDefault(t *testing.T) {
	os.Unsetenv("GROUPTOOLKIT_TEST_UNSET")
	d, err := config.ParseFlatString("TRANSPORT(bind=${GROUPTOOLKIT_TEST_UNSET:0.0.0.0:7800})")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:7800", d.Layers[0].Properties["bind"])
}

func TestParseYAML(t *testing.T) {
	doc := []byte(`
layers:
  - name: TRANSPORT
    properties:
      bind: "0.0.0.0:7800"
  - name: STATE_TRANSFER
    properties:
      timeout: "5000"
`)
	d, err := config.ParseYAML(doc)
	require.NoError(t, err)
	require.Len(t, d.Layers, 2)
	require.Equal(t, "TRANSPORT", d.Layers[0].Name)
	require.Equal(t, "5000", d.Layers[1].Properties["timeout"])
}
