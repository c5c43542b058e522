package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"

	"github.com/smallbiznis/gamepasses/internal/gamepass/domain"
	universedomain "github.com/smallbiznis/gamepasses/internal/universe/domain"
)

const defaultLinkSlug = "Gamepass"

// passItem is the union of the primary and fallback item shapes.
type passItem struct {
	ID          *int64
	Name        *string
	DisplayName *string
	Price       *float64
	ProductID   *int64
}

// decodeItem reads one listing entry field by field so a single badly typed
// field does not discard the rest. Non-object entries are rejected.
func decodeItem(raw json.RawMessage) (passItem, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return passItem{}, false
	}
	return passItem{
		ID:          int64Field(fields, "id"),
		Name:        stringField(fields, "name"),
		DisplayName: stringField(fields, "displayName"),
		Price:       floatField(fields, "price"),
		ProductID:   int64Field(fields, "productId"),
	}, true
}

func normalizeItems(universeID universedomain.UniverseID, items []json.RawMessage, linkBaseURL string) []domain.Record {
	out := make([]domain.Record, 0, len(items))
	for _, raw := range items {
		item, ok := decodeItem(raw)
		if !ok {
			continue
		}
		out = append(out, normalize(universeID, item, linkBaseURL))
	}
	return out
}

func normalize(universeID universedomain.UniverseID, item passItem, linkBaseURL string) domain.Record {
	name := ""
	switch {
	case item.Name != nil:
		name = *item.Name
	case item.DisplayName != nil:
		name = *item.DisplayName
	}

	rec := domain.Record{
		UniverseID: universeID,
		Name:       &name,
		Price:      item.Price,
		ProductID:  item.ProductID,
	}
	if item.ID != nil && *item.ID != 0 {
		id := *item.ID
		link := passLink(linkBaseURL, id, name)
		rec.ID = &id
		rec.Link = &link
	}
	return rec
}

func passLink(linkBaseURL string, id int64, name string) string {
	slug := defaultLinkSlug
	if name != "" {
		slug = url.PathEscape(name)
	}
	return fmt.Sprintf("%s/game-pass/%d/%s", linkBaseURL, id, slug)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func int64Field(fields map[string]json.RawMessage, key string) *int64 {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err == nil {
		return &v
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		v = int64(f)
		return &v
	}
	return nil
}

func floatField(fields map[string]json.RawMessage, key string) *float64 {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func stringField(fields map[string]json.RawMessage, key string) *string {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
