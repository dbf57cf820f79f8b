package model

import (
	"encoding/json"
	"fmt"
)

// Backup is the full-database snapshot document. Foreign keys are expressed
// as their natural ids, so the document restores onto any backend. Short
// links are operational state and deliberately excluded.
type Backup struct {
	Testers      []Tester      `json:"testers"`
	IDs          []IDMapping   `json:"ids"`
	Purchases    []Purchase    `json:"purchases"`
	Feedbacks    []Feedback    `json:"feedbacks"`
	Publications []Publication `json:"publications"`
	Refunds      []Refund      `json:"refunds"`
}

// backupCollections are the keys every backup document must carry.
var backupCollections = []string{
	"testers", "ids", "purchases", "feedbacks", "publications", "refunds",
}

// ParseBackup decodes a backup document and verifies that all six entity
// collections are present. A missing key fails the whole parse, so a
// truncated document is rejected before anything is mutated.
func ParseBackup(data []byte) (*Backup, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid backup document: %w", err)
	}

	for _, key := range backupCollections {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("backup document is missing collection %q", key)
		}
	}

	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, fmt.Errorf("invalid backup document: %w", err)
	}
	return &backup, nil
}

// Counts returns per-collection entity counts, used for restore reporting.
func (b *Backup) Counts() map[string]int {
	return map[string]int{
		"testers":      len(b.Testers),
		"ids":          len(b.IDs),
		"purchases":    len(b.Purchases),
		"feedbacks":    len(b.Feedbacks),
		"publications": len(b.Publications),
		"refunds":      len(b.Refunds),
	}
}
