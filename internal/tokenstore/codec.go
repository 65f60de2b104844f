package tokenstore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// codec turns documents into their stored string form and back.
type codec struct {
	sealer *Sealer
}

func newCodec(sealer *Sealer) codec {
	if sealer == nil {
		sealer = &Sealer{}
	}
	return codec{sealer: sealer}
}

func (c codec) encode(doc *Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token document: %w", err)
	}
	sealed, err := c.sealer.Seal(string(raw))
	if err != nil {
		return "", fmt.Errorf("failed to seal token document: %w", err)
	}
	return sealed, nil
}

// decode accepts plaintext JSON even when sealing is enabled, so documents
// written before a key was configured stay readable until their next write.
func (c codec) decode(stored string) (*Document, error) {
	raw := stored
	if !strings.HasPrefix(strings.TrimSpace(stored), "{") {
		opened, err := c.sealer.Open(stored)
		if err != nil {
			return nil, fmt.Errorf("failed to open token document: %w", err)
		}
		raw = opened
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token document: %w", err)
	}
	return &doc, nil
}
