package handler

import "metalab/internal/verify"

// CheckResponse is the wire form of a verification result.
type CheckResponse struct {
	Filename string              `json:"filename,omitempty"`
	Issuer   string              `json:"issuer,omitempty"`
	Variant  string              `json:"variant,omitempty"`
	Report   verify.ReportRecord `json:"report"`
}

// FromCheckResult converts a service result into its wire form.
func FromCheckResult(res verify.CheckResult) CheckResponse {
	return CheckResponse{
		Filename: res.Filename,
		Issuer:   res.Issuer,
		Variant:  res.Variant,
		Report:   res.Report,
	}
}

// TemplatesResponse lists the template ids registered for an issuer.
type TemplatesResponse struct {
	Issuer      string   `json:"issuer"`
	TemplateIDs []string `json:"template_ids"`
}
