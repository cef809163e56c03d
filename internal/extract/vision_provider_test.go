package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koreanssam/docmark/constants"
	"github.com/koreanssam/docmark/internal/entity"
	"github.com/koreanssam/docmark/internal/llm"
	"github.com/koreanssam/docmark/internal/ocr"
)

type fakeRenderer struct {
	total    int
	mu       sync.Mutex
	rendered []int
	seenPath string
	live     *liveCounter
}

func (f *fakeRenderer) PageCount(_ context.Context, path string) (int, error) {
	f.seenPath = path
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return f.total, nil
}

func (f *fakeRenderer) RenderPage(_ context.Context, _ string, page int) (ocr.PageImage, error) {
	f.mu.Lock()
	f.rendered = append(f.rendered, page)
	f.mu.Unlock()
	if f.live != nil {
		f.live.acquire()
	}
	return ocr.PageImage{Page: page, Data: []byte(fmt.Sprintf("img-%d", page)), MimeType: "image/png"}, nil
}

// liveCounter tracks how many rendered pages have not been transcribed yet.
type liveCounter struct {
	mu       sync.Mutex
	cur, max int
}

func (l *liveCounter) acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cur++
	if l.cur > l.max {
		l.max = l.cur
	}
}

func (l *liveCounter) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cur--
}

type fakeTranscriber struct {
	mu      sync.Mutex
	reqs    []llm.VisionRequest
	failOn  int
	respond func(req llm.VisionRequest) string
	live    *liveCounter
}

func (f *fakeTranscriber) Transcribe(_ context.Context, req llm.VisionRequest) (llm.VisionResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.live != nil {
		time.Sleep(5 * time.Millisecond)
		f.live.release()
	}
	if f.failOn != 0 && req.PageNumber == f.failOn {
		return llm.VisionResponse{}, errors.New("rate limited")
	}
	text := fmt.Sprintf("text of page %d", req.PageNumber)
	if f.respond != nil {
		text = f.respond(req)
	}
	return llm.VisionResponse{Text: text, InputTokens: 100, OutputTokens: 10}, nil
}

func (f *fakeTranscriber) ModelName() string { return "fake-vision" }

func pdfRequest(pages []int) entity.ExtractionRequest {
	return entity.ExtractionRequest{
		SourceKind:     constants.PDF,
		RequestedPages: pages,
		FileName:       "report.pdf",
		SystemPrompt:   "transcribe",
		Data:           []byte("%PDF-1.4 fake"),
	}
}

func TestVisionProvider_PDFAllPages(t *testing.T) {
	r := &fakeRenderer{total: 3}
	tr := &fakeTranscriber{}
	p := NewVisionProvider(r, tr, Config{PageConcurrency: 2}, nil)

	out, err := p.Extract(context.Background(), pdfRequest(nil))

	require.NoError(t, err)
	require.Len(t, out.Pages, 3)
	for i, pg := range out.Pages {
		assert.Equal(t, i+1, pg.PageNumber)
		assert.Equal(t, fmt.Sprintf("text of page %d", i+1), pg.Content)
		assert.Equal(t, len(pg.Content), pg.ContentLength)
	}
	assert.Equal(t, 300, out.InputTokens)
	assert.Equal(t, 30, out.OutputTokens)
	assert.Equal(t, "report.pdf", out.SourceFileName)
	assert.Equal(t, "fake-vision", out.Model)
	assert.GreaterOrEqual(t, out.CompletionTimeMs, 0.0)
	assert.Empty(t, out.Warnings)

	_, statErr := os.Stat(r.seenPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "temp file should be removed")
}

func TestVisionProvider_PDFDropsPagesPastEnd(t *testing.T) {
	r := &fakeRenderer{total: 3}
	p := NewVisionProvider(r, &fakeTranscriber{}, Config{}, nil)

	out, err := p.Extract(context.Background(), pdfRequest([]int{2, 5, 9}))

	require.NoError(t, err)
	assert.Equal(t, []int{2}, r.rendered)
	require.Len(t, out.Pages, 1)
	assert.Equal(t, 2, out.Pages[0].PageNumber)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "5,9")
}

func TestVisionProvider_PDFRendersLazilyWithinConcurrency(t *testing.T) {
	live := &liveCounter{}
	r := &fakeRenderer{total: 8, live: live}
	tr := &fakeTranscriber{live: live}
	p := NewVisionProvider(r, tr, Config{PageConcurrency: 2}, nil)

	out, err := p.Extract(context.Background(), pdfRequest(nil))

	require.NoError(t, err)
	require.Len(t, out.Pages, 8)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, r.rendered)
	assert.LessOrEqual(t, live.max, 2)
	assert.Equal(t, 0, live.cur)
}

func TestVisionProvider_PDFUnsortedSelectionComesBackAscending(t *testing.T) {
	p := NewVisionProvider(&fakeRenderer{total: 5}, &fakeTranscriber{}, Config{PageConcurrency: 3}, nil)

	out, err := p.Extract(context.Background(), pdfRequest([]int{4, 1, 3}))

	require.NoError(t, err)
	require.Len(t, out.Pages, 3)
	assert.Equal(t, 1, out.Pages[0].PageNumber)
	assert.Equal(t, 3, out.Pages[1].PageNumber)
	assert.Equal(t, 4, out.Pages[2].PageNumber)
}

func TestVisionProvider_PDFAllPagesOutOfRange(t *testing.T) {
	p := NewVisionProvider(&fakeRenderer{total: 2}, &fakeTranscriber{}, Config{}, nil)

	_, err := p.Extract(context.Background(), pdfRequest([]int{7}))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPagesInRange)
}

func TestVisionProvider_PDFPageFailureFailsWhole(t *testing.T) {
	p := NewVisionProvider(&fakeRenderer{total: 4}, &fakeTranscriber{failOn: 3}, Config{}, nil)

	out, err := p.Extract(context.Background(), pdfRequest(nil))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 3")
	assert.Empty(t, out.Pages)
}

func TestVisionProvider_StripsMarkdownFence(t *testing.T) {
	tr := &fakeTranscriber{respond: func(llm.VisionRequest) string { return "```markdown\n# 제목\n```" }}
	p := NewVisionProvider(&fakeRenderer{total: 1}, tr, Config{}, nil)

	out, err := p.Extract(context.Background(), pdfRequest(nil))

	require.NoError(t, err)
	require.Len(t, out.Pages, 1)
	assert.Equal(t, "# 제목", out.Pages[0].Content)
}

func TestVisionProvider_Image(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	tr := &fakeTranscriber{respond: func(llm.VisionRequest) string { return "영수증 내용" }}
	p := NewVisionProvider(nil, tr, Config{}, nil)

	out, err := p.Extract(context.Background(), entity.ExtractionRequest{
		SourceKind: constants.IMAGE,
		FileName:   "scan.png",
		Data:       buf.Bytes(),
	})

	require.NoError(t, err)
	require.Len(t, out.Pages, 1)
	assert.Equal(t, 1, out.Pages[0].PageNumber)
	assert.Equal(t, "영수증 내용", out.Pages[0].Content)
	require.Len(t, tr.reqs, 1)
	assert.Equal(t, "image/png", tr.reqs[0].MimeType)
}

func TestVisionProvider_ImageBlankAnswer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	tr := &fakeTranscriber{respond: func(llm.VisionRequest) string { return "" }}
	p := NewVisionProvider(nil, tr, Config{}, nil)

	out, err := p.Extract(context.Background(), entity.ExtractionRequest{SourceKind: constants.IMAGE, FileName: "x.png", Data: buf.Bytes()})

	require.NoError(t, err)
	assert.Empty(t, out.Pages)
}

func TestVisionProvider_UnknownKind(t *testing.T) {
	p := NewVisionProvider(nil, &fakeTranscriber{}, Config{}, nil)

	_, err := p.Extract(context.Background(), entity.ExtractionRequest{SourceKind: "DOCX"})

	require.Error(t, err)
}
