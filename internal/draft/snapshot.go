package draft

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"product-drafts-service/internal/models"
)

// Snapshot is a point-in-time deep copy of a draft. It is what the encoder
// reads and what autosave persists (attachment bytes are not serialized).
type Snapshot struct {
	ID          uuid.UUID                     `json:"id"`
	ProductType string                        `json:"productType"`
	State       State                         `json:"state"`
	Version     int64                         `json:"version"`
	Scalars     map[string]any                `json:"scalars"`
	Collections map[string][]models.SubRecord `json:"collections"`
	Attachments []Attachment                  `json:"attachments"`
	CreatedAt   time.Time                     `json:"createdAt"`
	UpdatedAt   time.Time                     `json:"updatedAt"`
}

type snapshotJSON Snapshot

// MarshalJSON writes numbers as JSON numbers instead of decimal's quoted form
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON(s)
	out.Scalars = jsonValues(s.Scalars)
	out.Collections = make(map[string][]models.SubRecord, len(s.Collections))
	for name, items := range s.Collections {
		recs := make([]models.SubRecord, len(items))
		for i, r := range items {
			recs[i] = jsonValues(r)
		}
		out.Collections[name] = recs
	}
	if out.Attachments == nil {
		out.Attachments = []Attachment{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON keeps numbers as json.Number so Hydrate can normalize them
// without going through float64.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var aux snapshotJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&aux); err != nil {
		return err
	}
	*s = Snapshot(aux)
	return nil
}

func jsonValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if d, ok := v.(decimal.Decimal); ok {
			out[k] = json.Number(d.String())
			continue
		}
		out[k] = v
	}
	return out
}
