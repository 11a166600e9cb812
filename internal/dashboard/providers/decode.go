package providers

import (
	"encoding/json"
	"fmt"
	"io"

	dashboard "energy-dashboard/internal/dashboard/domain"
	ingest "energy-dashboard/internal/ingest/domain"
)

const maxPayloadBytes = 8 << 20

type wirePoint struct {
	Datetime   string  `json:"datetime"`
	Production float64 `json:"production"`
	Export     float64 `json:"export"`
	Import     float64 `json:"import"`
}

type wirePayload struct {
	Summary     []dashboard.SummaryItem `json:"summary"`
	History     []wirePoint             `json:"history"`
	RefreshedAt string                  `json:"refreshedAt"`
}

// decodePayload reads the {summary, history} document emitted by the remote
// backend and the local script. Timestamps accept the same formats as imports.
func decodePayload(r io.Reader) (*dashboard.Payload, error) {
	var wire wirePayload
	if err := json.NewDecoder(io.LimitReader(r, maxPayloadBytes)).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", dashboard.ErrInvalidPayload, err)
	}
	if wire.Summary == nil || wire.History == nil {
		return nil, dashboard.ErrInvalidPayload
	}
	out := &dashboard.Payload{
		Summary: wire.Summary,
		History: make([]dashboard.HistoryPoint, 0, len(wire.History)),
	}
	for i, p := range wire.History {
		ts, ok := ingest.Normalize(p.Datetime)
		if !ok {
			return nil, fmt.Errorf("%w: history[%d] has invalid datetime", dashboard.ErrInvalidPayload, i)
		}
		out.History = append(out.History, dashboard.HistoryPoint{
			Timestamp:  ts,
			Production: p.Production,
			Export:     p.Export,
			Import:     p.Import,
		})
	}
	if ts, ok := ingest.Normalize(wire.RefreshedAt); ok {
		out.RefreshedAt = ts
	}
	return out, nil
}
