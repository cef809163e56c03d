package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koreanssam/docmark/constants"
	"github.com/koreanssam/docmark/internal/assemble"
	"github.com/koreanssam/docmark/internal/common"
	"github.com/koreanssam/docmark/internal/entity"
	"github.com/koreanssam/docmark/internal/repository"
)

var pdfData = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

type stubProvider struct {
	got     entity.ExtractionRequest
	calls   int
	outcome entity.ExtractionOutcome
	err     error
}

func (s *stubProvider) Extract(_ context.Context, req entity.ExtractionRequest) (entity.ExtractionOutcome, error) {
	s.calls++
	s.got = req
	return s.outcome, s.err
}

type recordedJob struct {
	fileName string
	kind     constants.SourceKind
	pages    string
	summary  *repository.JobSummary
	failure  string
}

type stubJobs struct {
	jobs     map[uuid.UUID]*recordedJob
	startErr error
}

func newStubJobs() *stubJobs { return &stubJobs{jobs: map[uuid.UUID]*recordedJob{}} }

func (s *stubJobs) Start(_ context.Context, fileName string, kind constants.SourceKind, pages string) (*entity.ExtractJob, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	id := uuid.New()
	s.jobs[id] = &recordedJob{fileName: fileName, kind: kind, pages: pages}
	return &entity.ExtractJob{ID: id, FileName: fileName}, nil
}

func (s *stubJobs) FinishSuccess(_ context.Context, id uuid.UUID, summary repository.JobSummary) error {
	s.jobs[id].summary = &summary
	return nil
}

func (s *stubJobs) FinishFailure(_ context.Context, id uuid.UUID, message string) error {
	s.jobs[id].failure = message
	return nil
}

func newProcessor(jobs JobRecorder, provider *stubProvider) *Processor {
	return NewProcessor(nil, NewExtractStage(jobs, provider, nil), "prompt")
}

func TestProcess_PDFWithSelection(t *testing.T) {
	jobs := newStubJobs()
	provider := &stubProvider{outcome: entity.ExtractionOutcome{
		Pages: []entity.PageResult{
			entity.NewPageResult(1, "첫 페이지"),
			entity.NewPageResult(3, "셋째 페이지"),
		},
		InputTokens: 10, OutputTokens: 5, Model: "m",
	}}
	p := newProcessor(jobs, provider)

	res, err := p.Process(context.Background(), Upload{FileName: "보고서.pdf", Data: pdfData, PageSelection: "3, 1, 3"})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, provider.got.RequestedPages)
	assert.Equal(t, "3, 1, 3", provider.got.RawPageSelection)
	assert.Equal(t, "prompt", provider.got.SystemPrompt)
	assert.Equal(t, constants.PDF, res.Kind)
	assert.Equal(t, "## 페이지 1\n\n첫 페이지\n\n## 페이지 3\n\n셋째 페이지", res.Text)
	assert.Equal(t, entity.OutputName{FileName: "보고서_extracted.md", MimeType: constants.MimeMarkdown}, res.Output)
	assert.Empty(t, res.Warnings)

	job := jobs.jobs[res.JobID]
	require.NotNil(t, job)
	assert.Equal(t, "1,3", job.pages)
	require.NotNil(t, job.summary)
	assert.Equal(t, constants.JobStatusSucceeded, job.summary.Status)
	assert.Equal(t, 2, job.summary.PageCount)
}

func TestProcess_InvalidSelectionFallsBackToAllPages(t *testing.T) {
	provider := &stubProvider{}
	p := newProcessor(newStubJobs(), provider)

	res, err := p.Process(context.Background(), Upload{FileName: "a.pdf", Data: pdfData, PageSelection: "abc, -2"})

	require.NoError(t, err)
	assert.Nil(t, provider.got.RequestedPages)
	assert.Equal(t, "abc, -2", provider.got.RawPageSelection)
	assert.Equal(t, []string{assemble.NoValidPagesWarning}, res.Warnings)
	assert.Equal(t, assemble.NoTextPDF, res.Text)
}

func TestProcess_BlankSelectionWarns(t *testing.T) {
	provider := &stubProvider{}
	p := newProcessor(nil, provider)

	res, err := p.Process(context.Background(), Upload{FileName: "a.pdf", Data: pdfData, PageSelection: "   "})

	require.NoError(t, err)
	assert.Nil(t, provider.got.RequestedPages)
	assert.Equal(t, []string{assemble.NoValidPagesWarning}, res.Warnings)
}

func TestProcess_AllPagesIgnoresSelection(t *testing.T) {
	provider := &stubProvider{}
	p := newProcessor(nil, provider)

	_, err := p.Process(context.Background(), Upload{FileName: "a.pdf", Data: pdfData, AllPages: true, PageSelection: "2"})

	require.NoError(t, err)
	assert.Nil(t, provider.got.RequestedPages)
}

func TestProcess_ImageEmptyOutcome(t *testing.T) {
	jobs := newStubJobs()
	provider := &stubProvider{}
	p := newProcessor(jobs, provider)

	res, err := p.Process(context.Background(), Upload{FileName: "scan.png", Data: pngData(t), PageSelection: "5"})

	require.NoError(t, err)
	assert.Nil(t, provider.got.RequestedPages, "page selection does not apply to images")
	assert.Equal(t, assemble.NoTextImage, res.Text)
	assert.Equal(t, "scan_extracted.txt", res.Output.FileName)
	assert.Equal(t, constants.JobStatusEmpty, jobs.jobs[res.JobID].summary.Status)
}

func TestProcess_ProviderFailure(t *testing.T) {
	jobs := newStubJobs()
	provider := &stubProvider{err: errors.New("quota exceeded")}
	p := newProcessor(jobs, provider)

	res, err := p.Process(context.Background(), Upload{FileName: "a.pdf", Data: pdfData})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, common.ErrProviderFailure)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeProviderFailure, appErr.Code)
	assert.Contains(t, common.UserMessage(err), "quota exceeded")
	assert.Equal(t, 1, provider.calls, "no retry")

	require.Len(t, jobs.jobs, 1)
	for _, j := range jobs.jobs {
		assert.Equal(t, "quota exceeded", j.failure)
		assert.Nil(t, j.summary)
	}
}

func TestProcess_UnsupportedType(t *testing.T) {
	provider := &stubProvider{}
	p := newProcessor(nil, provider)

	_, err := p.Process(context.Background(), Upload{FileName: "notes.docx", Data: []byte("PK")})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedType)
	assert.Zero(t, provider.calls)
}

func TestProcess_JobLogFailureDoesNotFailRequest(t *testing.T) {
	jobs := newStubJobs()
	jobs.startErr = errors.New("db locked")
	provider := &stubProvider{outcome: entity.ExtractionOutcome{Pages: []entity.PageResult{entity.NewPageResult(1, "x")}}}
	p := newProcessor(jobs, provider)

	res, err := p.Process(context.Background(), Upload{FileName: "a.pdf", Data: pdfData})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.JobID)
	assert.Equal(t, "x", res.Text)
}
