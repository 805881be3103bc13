package merge

import (
	"bytes"
	"testing"

	"mergesync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	cases := []struct {
		name      string
		source    string
		dest      string
		exists    bool
		strategy  model.Strategy
		separator string
		want      string
		noop      bool
		copied    bool
	}{
		{"append with separator", "new", "old", true, model.StrategyAppend, "---", "old\n\n---\nnew", false, false},
		{"append without separator", "new", "old", true, model.StrategyAppend, "", "old\n\nnew", false, false},
		{"prepend with separator", "new", "old", true, model.StrategyPrepend, "# merged", "# merged\nnew\nold", false, false},
		{"prepend without separator", "new", "old", true, model.StrategyPrepend, "", "new\nold", false, false},
		{"replace", "new", "old", true, model.StrategyReplace, "", "new", false, false},
		{"already contained", "needle", "hay needle hay", true, model.StrategyAppend, "---", "hay needle hay", true, false},
		{"replace already contained", "old", "old", true, model.StrategyReplace, "", "old", true, false},
		{"missing destination append", "new", "", false, model.StrategyAppend, "---", "new", false, true},
		{"missing destination replace", "new", "", false, model.StrategyReplace, "", "new", false, true},
		{"empty destination append", "new", "", true, model.StrategyAppend, "", "\n\nnew", false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Apply([]byte(tc.source), []byte(tc.dest), tc.exists, tc.strategy, tc.separator)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(res.Content))
			assert.Equal(t, tc.noop, res.Noop)
			assert.Equal(t, tc.copied, res.Copied)
		})
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	for _, strategy := range []model.Strategy{model.StrategyAppend, model.StrategyPrepend, model.StrategyReplace} {
		t.Run(string(strategy), func(t *testing.T) {
			first, err := Apply([]byte("new"), []byte("old"), true, strategy, "---")
			require.NoError(t, err)
			require.False(t, first.Noop)

			second, err := Apply([]byte("new"), first.Content, true, strategy, "---")
			require.NoError(t, err)
			assert.True(t, second.Noop)
			assert.Equal(t, first.Content, second.Content)
		})
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	dest := []byte("line one\nline two")
	source := []byte("appended block")

	res, err := Apply(source, dest, true, model.StrategyAppend, "## merged")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(res.Content, dest))
	assert.True(t, bytes.HasSuffix(res.Content, source))
}

func TestApplyRejectsNonMergeStrategy(t *testing.T) {
	_, err := Apply([]byte("a"), []byte("b"), true, model.StrategyCopy, "")
	assert.Error(t, err)
}

func TestApplyDoesNotAliasSource(t *testing.T) {
	source := []byte("src")
	res, err := Apply(source, nil, false, model.StrategyReplace, "")
	require.NoError(t, err)

	source[0] = 'X'
	assert.Equal(t, "src", string(res.Content))
}
