package handler

import (
	"time"

	"metalab/internal/cluster"
	"metalab/internal/meta"
)

// DocumentPayload is one document in a batch request.
type DocumentPayload struct {
	Name     string                    `json:"name"`
	Metadata map[string]map[string]any `json:"metadata"`
}

// SubmitRequest is the wire form of a batch clustering request.
type SubmitRequest struct {
	Documents []DocumentPayload `json:"documents"`
}

// ToDomain converts the wire batch into service documents.
func (r SubmitRequest) ToDomain() []cluster.Document {
	docs := make([]cluster.Document, 0, len(r.Documents))
	for _, d := range r.Documents {
		loose := make(map[string]any, len(d.Metadata))
		for group, kv := range d.Metadata {
			anyKV := make(map[string]any, len(kv))
			for tag, v := range kv {
				anyKV[tag] = v
			}
			loose[group] = anyKV
		}
		docs = append(docs, cluster.Document{
			Name: d.Name,
			Extraction: meta.Extraction{
				Grouped: meta.GroupedFromAny(loose),
			},
		})
	}
	return docs
}

// ResultResponse is the wire form of a clustering result.
type ResultResponse struct {
	ResultID  string            `json:"result_id"`
	Clusters  []cluster.Cluster `json:"clusters"`
	DocCount  int               `json:"doc_count"`
	CreatedAt time.Time         `json:"created_at"`
}

// FromResult converts a service result into its wire form.
func FromResult(res cluster.Result) ResultResponse {
	return ResultResponse{
		ResultID:  res.ResultID,
		Clusters:  res.Clusters,
		DocCount:  res.DocCount,
		CreatedAt: res.CreatedAt,
	}
}
