package labelmerge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
	"github.com/vaulttrove/labels-backend/pkg/logger"
)

const (
	defaultConcurrency = 4
	defaultTimeout     = 15 * time.Second
	defaultMaxLabels   = 500
	maxLabelBytes      = 10 << 20
)

// MergeFunc concatenates PDFs in order into w.
type MergeFunc func(inputs []io.ReadSeeker, w io.Writer) error

// PDFCPUMerge merges with pdfcpu's default configuration and no divider pages.
func PDFCPUMerge(inputs []io.ReadSeeker, w io.Writer) error {
	return api.MergeRaw(inputs, w, false, model.NewDefaultConfiguration())
}

// MergeReport describes which labels made it into the merged document.
type MergeReport struct {
	Requested int      `json:"requested"`
	Merged    int      `json:"merged"`
	Skipped   []string `json:"skipped,omitempty"`
}

type ServiceParams struct {
	HTTPClient  *http.Client
	Logger      *logger.Logger
	Concurrency int
	Timeout     time.Duration
	MaxLabels   int
	Merge       MergeFunc
}

type Service struct {
	http        *http.Client
	logg        *logger.Logger
	concurrency int
	timeout     time.Duration
	maxLabels   int
	merge       MergeFunc
}

func NewService(params ServiceParams) *Service {
	s := &Service{
		http:        params.HTTPClient,
		logg:        params.Logger,
		concurrency: params.Concurrency,
		timeout:     params.Timeout,
		maxLabels:   params.MaxLabels,
		merge:       params.Merge,
	}
	if s.http == nil {
		s.http = &http.Client{}
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultConcurrency
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.maxLabels <= 0 {
		s.maxLabels = defaultMaxLabels
	}
	if s.merge == nil {
		s.merge = PDFCPUMerge
	}
	return s
}

// Merge downloads every label PDF and writes them, in input order, as one
// document. Labels that fail to download are skipped and reported.
func (s *Service) Merge(ctx context.Context, urls []string, w io.Writer) (MergeReport, error) {
	report := MergeReport{Requested: len(urls)}
	if len(urls) == 0 {
		return report, pkgerrors.New(pkgerrors.CodeValidation, "at least one label url is required")
	}
	if len(urls) > s.maxLabels {
		return report, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d labels can be merged", s.maxLabels))
	}
	for _, raw := range urls {
		if !validURL(raw) {
			return report, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid label url %q", raw))
		}
	}

	docs := make([][]byte, len(urls))
	fetchErrs := make([]error, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			body, err := s.fetch(gctx, u)
			if err != nil {
				fetchErrs[i] = fmt.Errorf("%s: %w", u, err)
				return nil
			}
			docs[i] = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	inputs := make([]io.ReadSeeker, 0, len(docs))
	for i, body := range docs {
		if body == nil {
			report.Skipped = append(report.Skipped, urls[i])
			continue
		}
		inputs = append(inputs, bytes.NewReader(body))
	}
	if combined := multierr.Combine(fetchErrs...); combined != nil && s.logg != nil {
		fields := map[string]any{"skipped": len(report.Skipped), "requested": len(urls)}
		s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", combined.Error()), "some labels could not be fetched")
	}
	if len(inputs) == 0 {
		return report, pkgerrors.New(pkgerrors.CodeValidation, "no labels could be fetched").
			WithDetails(map[string]any{"skipped": report.Skipped})
	}

	if err := s.merge(inputs, w); err != nil {
		return report, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge label pdfs")
	}
	report.Merged = len(inputs)
	return report, nil
}

func (s *Service) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLabelBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxLabelBytes {
		return nil, fmt.Errorf("label exceeds %d bytes", maxLabelBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty label body")
	}
	return body, nil
}

func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
