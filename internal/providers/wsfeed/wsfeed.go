// Package wsfeed implements the source_type=WEBSOCKET adapter family
// (TICK data), fetching a bounded snapshot of recent ticks from a
// streaming connection rather than a single request/response.
package wsfeed

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marketcore/ingestcore/internal/adapter"
	"github.com/marketcore/ingestcore/internal/errs"
	"github.com/marketcore/ingestcore/internal/providers"
	"github.com/marketcore/ingestcore/internal/schema"
)

type tickMessage struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// Adapter connects to a websocket endpoint, reads up to SnapshotSize
// messages (or until the deadline), and treats that batch as one Fetch.
type Adapter struct {
	Source       string
	URL          string
	SnapshotSize int
	ReadTimeout  time.Duration
}

func New(name, url string) *Adapter {
	return &Adapter{Source: name, URL: url, SnapshotSize: 50, ReadTimeout: 3 * time.Second}
}

func (a *Adapter) Name() string                { return a.Source }
func (a *Adapter) DataTypes() []schema.DataType { return []schema.DataType{schema.DataTypeTick} }

func (a *Adapter) Fetch(ctx context.Context, params map[string]any) ([]byte, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.URL, nil)
	if err != nil {
		return nil, errs.New(a.Name(), errs.StageFetch, errs.KindDown, err.Error(), err)
	}
	defer conn.Close()

	deadline := time.Now().Add(a.ReadTimeout)
	_ = conn.SetReadDeadline(deadline)

	var batch [][]byte
	for len(batch) < a.SnapshotSize {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if len(batch) > 0 {
				break // a partial snapshot is still usable
			}
			return nil, errs.New(a.Name(), errs.StageFetch, errs.KindTimeout, err.Error(), err)
		}
		batch = append(batch, msg)
	}

	joined, err := json.Marshal(batch)
	if err != nil {
		return nil, errs.New(a.Name(), errs.StageFetch, errs.KindBadResponse, err.Error(), err)
	}
	return joined, nil
}

func (a *Adapter) Parse(ctx context.Context, raw []byte) (any, error) {
	var rawBatch []json.RawMessage
	if err := json.Unmarshal(raw, &rawBatch); err != nil {
		return nil, errs.New(a.Name(), errs.StageParse, errs.KindBadResponse, err.Error(), err)
	}
	ticks := make([]tickMessage, 0, len(rawBatch))
	for _, r := range rawBatch {
		var t tickMessage
		if err := json.Unmarshal(r, &t); err != nil {
			continue
		}
		ticks = append(ticks, t)
	}
	return ticks, nil
}

func (a *Adapter) Validate(ctx context.Context, parsed any) (any, error) {
	ticks := parsed.([]tickMessage)
	if len(ticks) == 0 {
		return nil, errs.New(a.Name(), errs.StageValidate, errs.KindValidation, "empty tick snapshot", nil)
	}
	return ticks, nil
}

func (a *Adapter) Normalize(ctx context.Context, parsed any, params map[string]any) ([]schema.UnifiedRecord, error) {
	ticks := parsed.([]tickMessage)
	now := time.Now().UTC()
	records := make([]schema.UnifiedRecord, 0, len(ticks))
	for _, t := range ticks {
		if strings.TrimSpace(t.Symbol) == "" {
			continue
		}
		records = append(records, schema.UnifiedRecord{
			DataType:   schema.DataTypeTick,
			Source:     a.Name(),
			SourceType: schema.SourceTypeWebSocket,
			Symbol:     strings.ToUpper(t.Symbol),
			Timestamp:  now,
			Price: &schema.PricePayload{
				Price:  int64(t.Price*100 + 0.5),
				Scale:  100,
				Volume: int64(t.Volume),
			},
		})
	}
	return records, nil
}

func (a *Adapter) HealthCheck(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.URL, nil)
	if err != nil {
		return err
	}
	return conn.Close()
}

func init() {
	providers.DefaultRegistry.Register(providers.SourceDescriptor{
		Name:             "generic_tick_ws",
		Priority:         providers.PrioritySecondary,
		DataTypes:        []schema.DataType{schema.DataTypeTick},
		ReliabilityScore: 0.75,
		Factory: func(config map[string]any) (adapter.Adapter, error) {
			url, _ := config["url"].(string)
			return New("generic_tick_ws", url), nil
		},
	})
}
