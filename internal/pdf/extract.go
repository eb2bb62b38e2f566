package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pdftext "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/examanalyzer/backend/internal/models"
)

// charsPerPageThreshold is the average extracted characters per page below
// which a document is treated as image-based and routed through OCR.
const charsPerPageThreshold = 50

// DocumentText is the result of local text extraction.
type DocumentText struct {
	Text       string
	PageCount  int
	ImageBased bool
}

// ExtractText reads a PDF page by page and concatenates the plain text.
// ImageBased is set when the text density falls below the per-page
// threshold, which is the signal for scanned papers.
func ExtractText(path string) (DocumentText, error) {
	f, reader, err := pdftext.Open(path)
	if err != nil {
		return DocumentText{}, fmt.Errorf("failed to open PDF %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	pageCount := reader.NumPage()
	if pageCount == 0 {
		return DocumentText{}, fmt.Errorf("PDF %s has no pages", filepath.Base(path))
	}

	var sb strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single undecodable page is not fatal; the density check
			// below routes genuinely unreadable documents to OCR.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	return DocumentText{
		Text:       text,
		PageCount:  pageCount,
		ImageBased: imageBased(len(text), pageCount),
	}, nil
}

// imageBased reports whether the extracted character density indicates a
// scanned document.
func imageBased(charCount, pageCount int) bool {
	if pageCount <= 0 {
		return true
	}
	return charCount/pageCount < charsPerPageThreshold
}

// PagePayloads optimizes the document and splits it into single-page PDFs,
// returning one inline payload per page for the OCR function.
func PagePayloads(path string) ([]models.PagePayload, error) {
	tempDir, err := os.MkdirTemp("", "page-split-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.OptimizeFile(path, optimizedPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}

	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	if err := api.SplitFile(optimizedPath, tempDir, 1, nil); err != nil {
		return nil, fmt.Errorf("failed to split PDF: %w", err)
	}

	splitBase := strings.TrimSuffix(optimizedPath, filepath.Ext(optimizedPath))
	payloads := make([]models.PagePayload, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		pagePath := fmt.Sprintf("%s_%d.pdf", splitBase, i)
		data, err := os.ReadFile(pagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read split page %d: %w", i, err)
		}
		payloads = append(payloads, models.PagePayload{
			MIMEType: "application/pdf",
			Data:     data,
		})
	}
	return payloads, nil
}
