package safety

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBlacklist(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		text string
		want bool
	}{
		{"I love eating pizza, especially late at night!", false},
		{"That is a stupid question.", true},
		{"Hello there", false},
		{"Shellfish is great", false},
		{"please SHUT UP", true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Offensive(tt.text))
		})
	}
	assert.Equal(t, "insult", f.Category("stupid"))
}

func TestThreshold(t *testing.T) {
	f, err := New(Config{Threshold: 2, Categories: map[string][]string{"test": {"badword", "worse word"}}})
	require.NoError(t, err)

	assert.False(t, f.Offensive("one badword"))
	assert.True(t, f.Offensive("badword and a worse word"))
	assert.Equal(t, []string{"badword", "worse word"}, f.Matches("badword and a worse word"))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  test: [gross]\n"), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.True(t, f.Offensive("that is gross"))
}

func TestInvalidConfig(t *testing.T) {
	_, err := Parse([]byte("threshold: 1\ncategories: {}\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNilFilterAllowsEverything(t *testing.T) {
	var f *Filter
	assert.False(t, f.Offensive("anything"))
}
