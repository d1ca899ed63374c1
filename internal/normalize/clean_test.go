package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "strips tags", raw: `今天天气<a href="#">真好</a>`, want: "今天天气真好"},
		{name: "drops punctuation and emoji", raw: "加油！！💪 Let's go", want: "加油 lets go"},
		{name: "lower cases latin", raw: "Hello 世界", want: "hello 世界"},
		{name: "keeps digits", raw: "第42期", want: "第42期"},
		{name: "trims", raw: "  正能量  ", want: "正能量"},
		{name: "empty in empty out", raw: "", want: ""},
		{name: "markup only", raw: "<br/><img src='x'>", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanText(tt.raw)
			require.Equal(t, tt.want, got)
			require.Equal(t, got, CleanText(got), "cleaning must be idempotent")
		})
	}
}

func TestTextHashStable(t *testing.T) {
	t.Parallel()

	a := TextHash("正能量内容")
	b := TextHash("正能量内容")
	c := TextHash("别的内容")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 40)
}
