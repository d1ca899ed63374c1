package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"weibo-harvest/internal/harvest"
)

const okPayload = `{
  "ok": 1,
  "data": {
    "cards": [
      {
        "card_type": 9,
        "mblog": {
          "text": "第一条正能量内容",
          "created_at": "今天 12:30",
          "scheme": "https://m.weibo.cn/status/4890000000000001",
          "user": {"screen_name": "甲"}
        }
      },
      {
        "card_type": 9,
        "mblog": {
          "text": "第二条正能量内容",
          "created_at": "5分钟前",
          "user": {"screen_name": "乙"}
        }
      }
    ]
  }
}`

func TestListingExtractTwoCards(t *testing.T) {
	t.Parallel()

	records, err := NewListing(zap.NewNop()).Extract(okPayload, "#正能量#")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "第一条正能量内容", records[0].Text)
	require.Equal(t, "甲", records[0].Author)
	require.Equal(t, "今天 12:30", records[0].PublishedAt)
	require.Equal(t, "第二条正能量内容", records[1].Text)
	require.Equal(t, "乙", records[1].Author)
	require.Equal(t, "#正能量#", records[1].Keyword)
	require.Equal(t, "https://m.weibo.cn/status/4890000000000001", records[0].SourceURL)
	require.Empty(t, records[1].SourceURL, "no scheme means no natural key")
}

func TestListingExtractPreWrapped(t *testing.T) {
	t.Parallel()

	wrapped := "<html><head></head><body><pre>" + okPayload + "</pre></body></html>"
	records, err := NewListing(zap.NewNop()).Extract(wrapped, "#正能量#")
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestListingExtractAPIError(t *testing.T) {
	t.Parallel()

	records, err := NewListing(zap.NewNop()).Extract(`{"ok": 0, "msg": "invalid containerid"}`, "kw")
	require.Empty(t, records)

	var apiErr *harvest.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "invalid containerid", apiErr.Message)
}

func TestListingExtractNoJSON(t *testing.T) {
	t.Parallel()

	_, err := NewListing(zap.NewNop()).Extract("<html><body><div>blocked</div></body></html>", "kw")
	require.ErrorIs(t, err, harvest.ErrNoJSON)
}

func TestListingExtractInvalidPreJSON(t *testing.T) {
	t.Parallel()

	_, err := NewListing(zap.NewNop()).Extract("<html><body><pre>{broken</pre></body></html>", "kw")
	require.ErrorIs(t, err, harvest.ErrNoJSON)
}

func TestListingExtractEmptyCards(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{
		`{"ok": 1, "data": {"cards": []}}`,
		`{"ok": 1, "data": {}}`,
		`{"ok": 1}`,
	} {
		_, err := NewListing(zap.NewNop()).Extract(payload, "kw")
		require.True(t, errors.Is(err, harvest.ErrEmptyResult), "payload %s", payload)
	}
}

func TestListingExtractEmptyDataCardsShadowTopLevel(t *testing.T) {
	t.Parallel()

	// A present-but-empty data.cards key is authoritative: the top-level
	// collection must not be consulted as a fallback.
	payload := `{"ok": 1, "data": {"cards": []}, "cards": [
	  {"card_type": 9, "mblog": {"text": "不应出现", "created_at": "5分钟前", "user": {"screen_name": "庚"}}}
	]}`
	records, err := NewListing(zap.NewNop()).Extract(payload, "kw")
	require.ErrorIs(t, err, harvest.ErrEmptyResult)
	require.Empty(t, records)
}

func TestListingExtractTopLevelCards(t *testing.T) {
	t.Parallel()

	payload := `{"ok": 1, "cards": [
	  {"card_type": 9, "mblog": {"text": "顶层卡片", "created_at": "2024-01-02 03:04", "user": {"screen_name": "丙"}}}
	]}`
	records, err := NewListing(zap.NewNop()).Extract(payload, "kw")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "顶层卡片", records[0].Text)
}

func TestListingExtractFlattensCardGroups(t *testing.T) {
	t.Parallel()

	payload := `{"ok": 1, "data": {"cards": [
	  {"card_type": 11, "card_group": [
	    {"card_type": 9, "mblog": {"text": "组内一", "created_at": "3小时前", "user": {"screen_name": "丁"}}},
	    {"card_type": 4},
	    {"card_type": 9, "mblog": {"text": "组内二", "created_at": "3小时前"}}
	  ]},
	  {"card_type": 9, "mblog": {"text": "裸卡片", "created_at": "2月3日 04:05", "user": {"screen_name": "戊"}}}
	]}}`
	records, err := NewListing(zap.NewNop()).Extract(payload, "kw")
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "组内一", records[0].Text)
	require.Equal(t, harvest.AuthorUnknown, records[1].Author, "missing user falls back to the sentinel")
	require.Equal(t, "裸卡片", records[2].Text)
}

func TestListingExtractSkipsMalformedAndEmpty(t *testing.T) {
	t.Parallel()

	payload := `{"ok": 1, "data": {"cards": [
	  {"card_type": 9},
	  {"card_type": 9, "mblog": {"text": "", "created_at": "now"}},
	  {"card_type": 9, "mblog": {"text": "有效", "created_at": "5分钟前", "user": {"screen_name": "己"}}}
	]}}`
	records, err := NewListing(zap.NewNop()).Extract(payload, "kw")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "有效", records[0].Text)
}

func TestListingExtractEmptyCardGroupYieldsNothing(t *testing.T) {
	t.Parallel()

	payload := `{"ok": 1, "data": {"cards": [
	  {"card_type": 9, "card_group": [], "mblog": {"text": "不应出现", "created_at": "x"}}
	]}}`
	records, err := NewListing(zap.NewNop()).Extract(payload, "kw")
	require.NoError(t, err)
	require.Empty(t, records, "a present-but-empty group contributes no bare card")
}
