package dashboard

import (
	"context"
	"sort"
	"time"
)

// SourceTag records which provider produced a payload.
type SourceTag string

const (
	TagSolaxLive     SourceTag = "solax-live"
	TagRemoteBackend SourceTag = "remote-backend"
	TagLocalScript   SourceTag = "local-script"
	TagDB            SourceTag = "db"
	TagSolax         SourceTag = "solax"
	TagDemo          SourceTag = "demo"
	TagNone          SourceTag = "none"
)

// SummaryItem is one headline figure.
type SummaryItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// HistoryPoint is one bucket of the dashboard chart, in kWh.
type HistoryPoint struct {
	Timestamp  time.Time `json:"datetime"`
	Production float64   `json:"production"`
	Export     float64   `json:"export"`
	Import     float64   `json:"import"`
}

// Payload is the dashboard response.
type Payload struct {
	Summary     []SummaryItem  `json:"summary"`
	History     []HistoryPoint `json:"history"`
	RefreshedAt time.Time      `json:"refreshedAt"`
	SourceUsed  SourceTag      `json:"sourceUsed"`
}

// Validate checks the structural contract: both lists must be present.
func (p *Payload) Validate() error {
	if p == nil || p.Summary == nil || p.History == nil {
		return ErrInvalidPayload
	}
	return nil
}

// SortHistory orders history ascending by timestamp.
func (p *Payload) SortHistory() {
	sort.SliceStable(p.History, func(i, j int) bool {
		return p.History[i].Timestamp.Before(p.History[j].Timestamp)
	})
}

// Clone returns a deep copy safe to hand to another request.
func (p Payload) Clone() Payload {
	out := p
	out.Summary = append([]SummaryItem(nil), p.Summary...)
	out.History = append([]HistoryPoint(nil), p.History...)
	if out.Summary == nil {
		out.Summary = []SummaryItem{}
	}
	if out.History == nil {
		out.History = []HistoryPoint{}
	}
	return out
}

// Empty is the explicit no-data payload for a mode.
func Empty(tag SourceTag, now time.Time) Payload {
	return Payload{Summary: []SummaryItem{}, History: []HistoryPoint{}, RefreshedAt: now.UTC(), SourceUsed: tag}
}

// Provider is one candidate in the fallback chain. TryLoad returns
// ErrSkipped when the provider is not configured.
type Provider interface {
	Name() SourceTag
	TryLoad(ctx context.Context, f Filters) (*Payload, error)
}
