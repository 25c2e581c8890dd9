package ingest

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	s3client "github.com/efezeyus/aiogretmen-sub001/pkg/s3"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ledongthuc/pdf"
)

// ErrEmptyDocument reports a PDF with no extractable text. Ingest refuses to
// build an index out of nothing.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// FetchToLocalTemp materializes a local or s3:// path into a temp file and
// returns a cleanup function.
func FetchToLocalTemp(ctx context.Context, filePath string) (string, func(), error) {
	noop := func() {}
	if strings.HasPrefix(filePath, "s3://") {
		u, err := url.Parse(filePath)
		if err != nil {
			return "", noop, err
		}
		bucket := u.Host
		key := strings.TrimPrefix(u.Path, "/")
		cli, err := s3client.GetClient()
		if err != nil {
			return "", noop, err
		}
		out, err := cli.GetObject(ctx, &awss3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
		if err != nil {
			return "", noop, err
		}
		defer out.Body.Close()
		return writeTemp(out.Body)
	}

	abs := filePath
	if !filepath.IsAbs(abs) {
		cwd, _ := os.Getwd()
		abs = filepath.Join(cwd, filePath)
	}
	src, err := os.Open(abs)
	if err != nil {
		return "", noop, err
	}
	defer src.Close()
	return writeTemp(src)
}

func writeTemp(r io.Reader) (string, func(), error) {
	noop := func() {}
	tmp, err := os.CreateTemp("", "ingest-*.pdf")
	if err != nil {
		return "", noop, err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", noop, err
	}
	tmp.Close()
	return tmp.Name(), func() { _ = os.Remove(tmp.Name()) }, nil
}

// ExtractPDFTextPages extracts text page by page. Page numbers are 1-based
// and carried through chunk metadata for citation.
func ExtractPDFTextPages(localPath string) ([]string, error) {
	f, reader, err := pdf.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	anyText := false
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		clean := sanitizeUTF8Printable(text)
		if clean != "" {
			anyText = true
		}
		pages = append(pages, clean)
	}
	if !anyText {
		return nil, ErrEmptyDocument
	}
	return pages, nil
}

// sanitizeUTF8Printable removes BOM and non-printable runes, keeping common
// whitespace.
func sanitizeUTF8Printable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\uFEFF' || r == unicode.ReplacementChar {
			continue
		}
		if r == '\n' || r == '\t' || r == '\r' {
			// keep
		} else if !unicode.IsPrint(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
