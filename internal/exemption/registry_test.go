package exemption

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
)

const sampleYAML = `
retired:
  - Carol
  - Frank
leave:
  - Dave
arbcom:
`

func TestParse(t *testing.T) {
	reg, err := Parse([]byte(sampleYAML), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "retired", reg.Lookup("Carol"))
	assert.Equal(t, "retired", reg.Lookup("Frank"))
	assert.Equal(t, "leave", reg.Lookup("Dave"))
	assert.Equal(t, "", reg.Lookup("Alice"))
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"retired", "leave", "arbcom"}, reg.Categories())
}

func TestParse_LastCategoryWins(t *testing.T) {
	data := []byte(`
zeta:
  - Carol
alpha:
  - Carol
`)
	// Repeat to catch any dependence on map iteration order.
	for i := 0; i < 20; i++ {
		reg, err := Parse(data, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "alpha", reg.Lookup("Carol"))
	}
}

func TestParse_NormalizesNames(t *testing.T) {
	reg, err := Parse([]byte("retired:\n  - some_user\n  - \"  Éric \"\n"), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "retired", reg.Lookup("Some user"))
	assert.Equal(t, "retired", reg.Lookup("some_user"))
	assert.Equal(t, "retired", reg.Lookup("Éric"))
}

func TestParse_Empty(t *testing.T) {
	reg, err := Parse(nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, reg.Len())
	assert.Equal(t, "", reg.Lookup("Anyone"))
}

func TestParse_Malformed(t *testing.T) {
	tests := map[string]string{
		"not yaml":        "retired: [Carol",
		"top-level list":  "- Carol\n- Dave\n",
		"scalar category": "retired: Carol\n",
		"nested mapping":  "retired:\n  Carol: yes\n",
		"scalar document": "just a string\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), zerolog.Nop())
			require.Error(t, err)
			assert.ErrorIs(t, err, perrors.ErrConfiguration)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excuses.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	reg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "retired", reg.Lookup("Carol"))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrConfiguration)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLookup_NilRegistry(t *testing.T) {
	var reg *Registry
	assert.Equal(t, "", reg.Lookup("Carol"))
}

func TestNormalizeUser(t *testing.T) {
	assert.Equal(t, "Foo bar", NormalizeUser("foo_bar"))
	assert.Equal(t, "", NormalizeUser("   "))
	assert.Equal(t, "Ünïcode", NormalizeUser("ünïcode"))
}

func TestLoad_ShippedExample(t *testing.T) {
	reg, err := Load(filepath.Join("..", "..", "examples", "excuses.yaml.ex"), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"retired", "leave", "arbcom"}, reg.Categories())
	assert.Equal(t, "leave", reg.Lookup("Example on leave"))
}
