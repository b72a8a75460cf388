// Package news implements the NEWS data-type RSS adapter family
// (source_type=RSS).
package news

import (
	"context"
	"encoding/xml"
	"strings"
	"time"

	"github.com/marketcore/ingestcore/internal/adapter"
	"github.com/marketcore/ingestcore/internal/errs"
	"github.com/marketcore/ingestcore/internal/providers"
	"github.com/marketcore/ingestcore/internal/providers/httpadapter"
	"github.com/marketcore/ingestcore/internal/schema"
)

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	Author  string `xml:"author"`
	PubDate string `xml:"pubDate"`
	Content string `xml:"description"`
}

// Adapter fetches an RSS feed and normalizes each item to a NEWS record.
type Adapter struct {
	httpadapter.Base
}

func New(name, feedURL string) *Adapter {
	return &Adapter{Base: httpadapter.Base{
		Source:    name,
		BaseURL:   feedURL,
		UserAgent: "ingestcore/1.0",
		Client:    httpadapter.NewClient(10 * time.Second),
	}}
}

func (a *Adapter) Name() string                { return a.Source }
func (a *Adapter) DataTypes() []schema.DataType { return []schema.DataType{schema.DataTypeNews} }

// Parse overrides the JSON default: RSS is XML.
func (a *Adapter) Parse(ctx context.Context, raw []byte) (any, error) {
	var feed rssFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, errs.New(a.Name(), errs.StageParse, errs.KindBadResponse, err.Error(), err)
	}
	return feed, nil
}

func (a *Adapter) Validate(ctx context.Context, parsed any) (any, error) {
	feed := parsed.(rssFeed)
	if len(feed.Channel.Items) == 0 {
		return nil, errs.New(a.Name(), errs.StageValidate, errs.KindValidation, "feed contained no items", nil)
	}
	return feed, nil
}

func (a *Adapter) Normalize(ctx context.Context, parsed any, params map[string]any) ([]schema.UnifiedRecord, error) {
	feed := parsed.(rssFeed)
	now := time.Now().UTC()
	records := make([]schema.UnifiedRecord, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		ts := now
		if parsed, err := time.Parse(time.RFC1123Z, item.PubDate); err == nil {
			ts = parsed.UTC()
		}
		rec := schema.UnifiedRecord{
			DataType:   schema.DataTypeNews,
			Source:     a.Name(),
			SourceType: schema.SourceTypeRSS,
			Timestamp:  ts,
			News: &schema.NewsPayload{
				Title:   strings.TrimSpace(item.Title),
				Content: strings.TrimSpace(item.Content),
				URL:     item.Link,
				Author:  item.Author,
			},
		}
		if err := rec.Validate(); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func init() {
	providers.DefaultRegistry.Register(providers.SourceDescriptor{
		Name:             "generic_news_rss",
		Priority:         providers.PriorityPrimary,
		DataTypes:        []schema.DataType{schema.DataTypeNews},
		ReliabilityScore: 0.8,
		Factory: func(config map[string]any) (adapter.Adapter, error) {
			feedURL, _ := config["feed_url"].(string)
			return New("generic_news_rss", feedURL), nil
		},
	})
}
