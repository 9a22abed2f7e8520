package pdf_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"penumbra/penumbra/papers"
	"penumbra/penumbra/pdf"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

func writeTestPdf(t *testing.T, content string) string {
	t.Helper()

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Arial", "", 12)
	doc.Cell(40, 10, content)

	path := filepath.Join(t.TempDir(), "fixture.pdf")
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDownload(t *testing.T) {
	fixture, err := os.ReadFile(writeTestPdf(t, "This is a test pdf"))
	if err != nil {
		t.Fatal(err)
	}

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(fixture)
	}))
	defer server.Close()

	dir := t.TempDir()
	downloader := pdf.NewDownloader(dir, 0, nil)
	paper := papers.Paper{PMID: "123"}

	path, err := downloader.Download(context.Background(), &paper, server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "id_123.pdf") {
		t.Fatalf("unexpected path: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != len(fixture) {
		t.Fatalf("downloaded file truncated: %d != %d bytes", len(data), len(fixture))
	}

	// A second download must be served from disk.
	if _, err := downloader.Download(context.Background(), &paper, server.URL); err != nil {
		t.Fatal(err)
	}
	if requests != 1 {
		t.Fatalf("expected 1 network request, got %d", requests)
	}
}

func TestDownloadRejectsNonPdf(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a pdf</html>"))
	}))
	defer server.Close()

	downloader := pdf.NewDownloader(t.TempDir(), 0, nil)

	if _, err := downloader.Download(context.Background(), &papers.Paper{PMID: "1"}, server.URL); err == nil {
		t.Fatal("expected error for non-pdf content")
	}
}

func TestDownloadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	downloader := pdf.NewDownloader(t.TempDir(), 0, nil)

	if _, err := downloader.Download(context.Background(), &papers.Paper{PMID: "1"}, server.URL); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestConvertToMarkdown(t *testing.T) {
	pdfPath := writeTestPdf(t, "This is a test pdf")

	dir := t.TempDir()
	converter := pdf.NewConverter(dir, pdf.ConvertOptions{})
	paper := papers.Paper{PMID: "55", Title: "A Converted Paper"}

	path, err := converter.Convert(&paper, pdfPath)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "id_55.md") {
		t.Fatalf("unexpected path: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(content), "# A Converted Paper") {
		t.Fatalf("markdown missing title heading: %q", string(content)[:50])
	}
	if !strings.Contains(string(content), "This is a test pdf") {
		t.Fatal("markdown missing pdf text")
	}

	// Conversion is idempotent: overwrite the file and convert again, the
	// existing output must be kept.
	if err := os.WriteFile(path, []byte("sentinel"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := converter.Convert(&paper, pdfPath); err != nil {
		t.Fatal(err)
	}
	content, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "sentinel" {
		t.Fatal("existing markdown must not be regenerated")
	}
}

func TestConvertMissingPdf(t *testing.T) {
	converter := pdf.NewConverter(t.TempDir(), pdf.ConvertOptions{})

	if _, err := converter.Convert(&papers.Paper{PMID: "1"}, "/nonexistent.pdf"); err == nil {
		t.Fatal("expected error for missing pdf")
	}
}
