package verify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metalab/internal/audit"
	"metalab/internal/meta"
	"metalab/internal/template"
	"metalab/internal/variant"
	dErrors "metalab/pkg/domain-errors"
)

type captureAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureAudit) Emit(_ context.Context, e audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func testRegistry(t *testing.T) *variant.Registry {
	t.Helper()
	reg, err := variant.ParseRegistry([]byte(`
issuers:
  - issuer: acme
    fallback: ""
    variants:
      - tag: ios
        template_id: ACME_IOS_V1
        rules:
          - field: Producer
            op: contains
            value: quartz pdfcontext
      - tag: web
        template_id: ACME_WEB_V1
        rules:
          - field: Producer
            op: contains
            value: skia/pdf
  - issuer: globex
    fallback: web
    variants:
      - tag: web
        template_id: GLOBEX_WEB_V1
        rules:
          - field: Producer
            op: prefix
            value: chromium
`))
	require.NoError(t, err)
	return reg
}

func testService(t *testing.T, sink audit.Publisher) *Service {
	t.Helper()
	store := template.NewMemoryStore(
		acmeTemplate(),
		&template.Template{
			ID:           "ACME_IOS_V1",
			Issuer:       "Acme",
			StrictKeyset: true,
			RequiredKeys: []string{"PDF.Producer"},
			ExpectedValues: map[string]string{
				"PDF.Producer": "Quartz PDFContext",
			},
		},
		&template.Template{
			ID:           "GLOBEX_WEB_V1",
			Issuer:       "Globex",
			StrictKeyset: false,
			RequiredKeys: []string{"PDF.Producer"},
			ExpectedValues: map[string]string{
				"PDF.Producer": template.AnyValue,
			},
		},
	)

	opts := []ServiceOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithComparator(NewComparator(fixedClock())),
	}
	if sink != nil {
		opts = append(opts, WithAudit(sink))
	}
	return NewService(store, testRegistry(t), opts...)
}

func TestCheckExplicitTemplate(t *testing.T) {
	sink := &captureAudit{}
	svc := testService(t, sink)

	res, err := svc.Check(context.Background(), CheckRequest{
		Filename:   "statement.pdf",
		TemplateID: "ACME_WEB_V1",
		Extraction: meta.Extraction{
			Grouped: meta.Grouped{
				"PDF": {
					"Encrypted":  "yes (print:yes copy:yes edit:no)",
					"PDFVersion": "1.6",
					"PageCount":  "3",
				},
				"XMP": {"Producer": "Skia/PDF m105"},
			},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.Report.Pass)
	assert.Equal(t, "ACME_WEB_V1", res.Report.TemplateID)
	assert.Empty(t, res.Variant, "no detection ran")

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, audit.KindTemplateCheck, event.Kind)
	assert.Equal(t, "pass", event.Outcome)
	assert.Equal(t, "ACME_WEB_V1", event.TemplateID)
	assert.NotEmpty(t, event.ID)
}

func TestCheckDetectsVariant(t *testing.T) {
	svc := testService(t, nil)

	res, err := svc.Check(context.Background(), CheckRequest{
		Filename: "receipt.pdf",
		Issuer:   "Acme",
		Extraction: meta.Extraction{
			Grouped: meta.Grouped{
				"PDF": {"Producer": "Quartz PDFContext"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ios", res.Variant)
	assert.Equal(t, "ACME_IOS_V1", res.Report.TemplateID)
	assert.True(t, res.Report.Pass)
}

func TestCheckDetectionPrecedence(t *testing.T) {
	// A producer matching both the ios and web signatures resolves to the
	// first declared variant.
	svc := testService(t, nil)

	res, err := svc.Check(context.Background(), CheckRequest{
		Issuer: "Acme",
		Extraction: meta.Extraction{
			Grouped: meta.Grouped{
				"PDF": {"Producer": "Quartz PDFContext with Skia/PDF shim"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ios", res.Variant)
}

func TestCheckAmbiguousWithoutFallback(t *testing.T) {
	svc := testService(t, nil)

	_, err := svc.Check(context.Background(), CheckRequest{
		Issuer: "Acme",
		Extraction: meta.Extraction{
			Grouped: meta.Grouped{
				"PDF": {"Producer": "Microsoft Word"},
			},
		},
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAmbiguous))
}

func TestCheckFallbackVariant(t *testing.T) {
	svc := testService(t, nil)

	res, err := svc.Check(context.Background(), CheckRequest{
		Issuer: "Globex",
		Extraction: meta.Extraction{
			Grouped: meta.Grouped{
				"PDF": {"Producer": "Microsoft Word"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "web", res.Variant)
	assert.Equal(t, "GLOBEX_WEB_V1", res.Report.TemplateID)
}

func TestCheckUnknownIssuer(t *testing.T) {
	svc := testService(t, nil)

	_, err := svc.Check(context.Background(), CheckRequest{
		Issuer: "initech",
		Extraction: meta.Extraction{
			Grouped: meta.Grouped{"PDF": {"Producer": "x"}},
		},
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCheckUnknownTemplate(t *testing.T) {
	svc := testService(t, nil)

	_, err := svc.Check(context.Background(), CheckRequest{
		TemplateID: "GHOST_V1",
		Extraction: meta.Extraction{
			Grouped: meta.Grouped{"PDF": {"Producer": "x"}},
		},
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCheckEmptyExtraction(t *testing.T) {
	svc := testService(t, nil)

	_, err := svc.Check(context.Background(), CheckRequest{TemplateID: "ACME_WEB_V1"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCheckFailingVerdictIsNotAnError(t *testing.T) {
	sink := &captureAudit{}
	svc := testService(t, sink)

	res, err := svc.Check(context.Background(), CheckRequest{
		TemplateID: "ACME_WEB_V1",
		Extraction: meta.Extraction{
			Grouped: meta.Grouped{
				"XMP": {"Producer": "Microsoft Word"},
			},
		},
	})
	require.NoError(t, err)
	assert.False(t, res.Report.Pass)
	assert.Equal(t, "FAIL", res.Report.Status)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "fail", sink.events[0].Outcome)
}

func TestListTemplateIDs(t *testing.T) {
	svc := testService(t, nil)

	ids, err := svc.ListTemplateIDs(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME_IOS_V1", "ACME_WEB_V1"}, ids)

	_, err = svc.ListTemplateIDs(context.Background(), "initech")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = svc.ListTemplateIDs(context.Background(), "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
