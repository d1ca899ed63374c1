package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"weibo-harvest/internal/harvest"
	"weibo-harvest/internal/telemetry"
)

// Card types in the listing response that wrap a post object.
var postCardTypes = map[int]struct{}{
	9:  {},
	11: {},
}

type listingEnvelope struct {
	Ok    int           `json:"ok"`
	Msg   string        `json:"msg"`
	Data  *listingData  `json:"data"`
	Cards []listingCard `json:"cards"`
}

type listingData struct {
	Cards []listingCard `json:"cards"`
}

// listingCard is one entry in the result collection: either a post
// wrapper or a group of post wrappers. CardGroup is a pointer so that a
// present-but-empty group is distinguishable from an absent one.
type listingCard struct {
	CardType  int            `json:"card_type"`
	CardGroup *[]listingCard `json:"card_group"`
	Mblog     *listingPost   `json:"mblog"`
}

type listingPost struct {
	Text      string       `json:"text"`
	CreatedAt string       `json:"created_at"`
	Scheme    string       `json:"scheme"`
	User      *listingUser `json:"user"`
}

type listingUser struct {
	ScreenName string `json:"screen_name"`
}

// Listing extracts records from a listing-API payload.
type Listing struct {
	logger *zap.Logger
}

// NewListing builds the listing extractor.
func NewListing(logger *zap.Logger) *Listing {
	return &Listing{logger: logger}
}

// Extract parses the rendered API payload and returns the records it
// carries. The payload is either bare JSON or JSON wrapped in a single
// <pre> element by the browser's JSON viewer.
func (l *Listing) Extract(payload, keyword string) ([]harvest.Record, error) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}

	if env.Ok != 1 {
		return nil, &harvest.APIError{Message: env.Msg}
	}

	// data.cards wins whenever the key is present, even empty; the
	// top-level collection is only consulted when data carries no cards
	// key at all.
	cards := env.Cards
	if env.Data != nil && env.Data.Cards != nil {
		cards = env.Data.Cards
	}
	if len(cards) == 0 {
		return nil, harvest.ErrEmptyResult
	}

	var records []harvest.Record
	for i, card := range cards {
		for _, flat := range flatten(card) {
			if _, ok := postCardTypes[flat.CardType]; !ok {
				continue
			}
			if flat.Mblog == nil {
				l.logger.Warn("card missing post object",
					zap.String("keyword", keyword),
					zap.Int("card_index", i),
					zap.Int("card_type", flat.CardType),
				)
				telemetry.FetchErrorsTotal.WithLabelValues(harvest.ErrorKind(harvest.ErrMalformedCard)).Inc()
				continue
			}
			rec := recordFromPost(flat.Mblog, keyword)
			if rec.Text == "" {
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// decodeEnvelope tries a direct JSON parse, then falls back to the inner
// text of a <pre> element.
func decodeEnvelope(payload string) (*listingEnvelope, error) {
	var env listingEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err == nil {
		return &env, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", harvest.ErrNoJSON, err)
	}
	pre := doc.Find("pre").First()
	if pre.Length() == 0 {
		return nil, harvest.ErrNoJSON
	}
	if err := json.Unmarshal([]byte(pre.Text()), &env); err != nil {
		return nil, fmt.Errorf("%w: pre element held invalid JSON: %v", harvest.ErrNoJSON, err)
	}
	return &env, nil
}

// flatten normalizes a card into bare cards: grouped entries yield their
// group members, everything else yields itself.
func flatten(card listingCard) []listingCard {
	if card.CardGroup != nil {
		return *card.CardGroup
	}
	return []listingCard{card}
}

func recordFromPost(post *listingPost, keyword string) harvest.Record {
	author := harvest.AuthorUnknown
	if post.User != nil && post.User.ScreenName != "" {
		author = post.User.ScreenName
	}
	// The card scheme, when present, doubles as the post's detail-page
	// URL and therefore its natural key.
	return harvest.Record{
		Text:        post.Text,
		Author:      author,
		PublishedAt: post.CreatedAt,
		SourceURL:   post.Scheme,
		Keyword:     keyword,
	}
}
