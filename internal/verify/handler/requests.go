package handler

import (
	"strings"

	"metalab/internal/meta"
	"metalab/internal/verify"
	dErrors "metalab/pkg/domain-errors"
)

// CheckRequest is the wire form of a verification request. Metadata arrives
// as the extractor's loose group -> tag -> value JSON; scalar tag values are
// tolerated and stringified.
type CheckRequest struct {
	Filename   string                    `json:"filename"`
	Issuer     string                    `json:"issuer"`
	TemplateID string                    `json:"template_id"`
	Metadata   map[string]map[string]any `json:"metadata"`
	RawText    string                    `json:"raw_text"`
	SizeBytes  int64                     `json:"size_bytes"`
}

// Validate checks the request shape before it reaches the service.
func (r CheckRequest) Validate() error {
	if len(r.Metadata) == 0 {
		return dErrors.New(dErrors.CodeValidation, "metadata is required")
	}
	if strings.TrimSpace(r.TemplateID) == "" && strings.TrimSpace(r.Issuer) == "" {
		return dErrors.New(dErrors.CodeValidation, "template_id or issuer is required")
	}
	if r.SizeBytes < 0 {
		return dErrors.New(dErrors.CodeValidation, "size_bytes must not be negative")
	}
	return nil
}

// ToDomain converts the wire request into the service request.
func (r CheckRequest) ToDomain() verify.CheckRequest {
	loose := make(map[string]any, len(r.Metadata))
	for group, kv := range r.Metadata {
		anyKV := make(map[string]any, len(kv))
		for tag, v := range kv {
			anyKV[tag] = v
		}
		loose[group] = anyKV
	}
	return verify.CheckRequest{
		Filename:   strings.TrimSpace(r.Filename),
		Issuer:     strings.TrimSpace(r.Issuer),
		TemplateID: strings.TrimSpace(r.TemplateID),
		Extraction: meta.Extraction{
			Grouped:   meta.GroupedFromAny(loose),
			RawText:   r.RawText,
			SizeBytes: r.SizeBytes,
		},
	}
}
