// Package pdf downloads paper pdfs into a local directory and converts them
// to markdown. Downloads optionally go through an S3 cache shared between
// deployments.
package pdf

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"penumbra/penumbra/monitoring"
	"penumbra/penumbra/papers"
	"time"

	"github.com/go-resty/resty/v2"
)

var headers = map[string]string{
	"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"accept-language":           "en-US,en;q=0.9",
	"cache-control":             "max-age=0",
	"user-agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36",
	"upgrade-insecure-requests": "1",
	"sec-ch-ua":                 `"Not/A)Brand";v="99", "Google Chrome";v="115", "Chromium";v="115"`,
	"sec-ch-ua-mobile":          "?0",
	"sec-ch-ua-platform":        `"Windows"`,
}

type Downloader struct {
	client  *resty.Client
	dir     string
	s3Cache *S3Cache
}

// NewDownloader creates a downloader writing pdfs into dir. The S3 cache is
// optional; pass nil to download straight from publishers only.
func NewDownloader(dir string, timeout time.Duration, s3Cache *S3Cache) *Downloader {
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	return &Downloader{
		client: resty.New().
			SetRetryCount(1).SetTimeout(timeout).
			SetRetryWaitTime(5 * time.Second).
			SetRetryMaxWaitTime(30 * time.Second).
			SetHeaders(headers),
		dir:     dir,
		s3Cache: s3Cache,
	}
}

// Download fetches the pdf at url into <dir>/<filename base>.pdf and returns
// the local path. An existing file is reused without any network traffic, so
// repeated searches over the same papers are cheap.
func (d *Downloader) Download(ctx context.Context, paper *papers.Paper, url string) (string, error) {
	target := filepath.Join(d.dir, paper.FilenameBase()+".pdf")

	if _, err := os.Stat(target); err == nil {
		slog.Info("pdf already downloaded", "path", target)
		return target, nil
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("error creating pdf dir: %w", err)
	}

	if d.s3Cache != nil {
		if err := d.s3Cache.Get(ctx, paper.FilenameBase(), target); err == nil {
			monitoring.PdfDownloads.WithLabelValues("s3_cache").Inc()
			return target, nil
		} else if !errors.Is(err, ErrNotCached) {
			slog.Error("error retrieving pdf from S3 cache", "error", err)
		}
	}

	if err := d.downloadWithHttp(ctx, url, target); err != nil {
		monitoring.PdfDownloads.WithLabelValues("failed").Inc()
		return "", err
	}
	monitoring.PdfDownloads.WithLabelValues("downloaded").Inc()

	if d.s3Cache != nil {
		if err := d.s3Cache.Put(ctx, paper.FilenameBase(), target); err != nil {
			slog.Error("failed to upload pdf to S3 cache", "error", err)
		}
	}

	return target, nil
}

func (d *Downloader) downloadWithHttp(ctx context.Context, url, target string) error {
	res, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return fmt.Errorf("download error: %w", err)
	}
	defer res.RawBody().Close()

	if !res.IsSuccess() {
		return fmt.Errorf("download returned error, received status_code=%d", res.StatusCode())
	}

	reader := bufio.NewReader(res.RawBody())
	prefix, err := reader.Peek(4)
	if err != nil {
		return fmt.Errorf("failed to read prefix: %w", err)
	}
	if !bytes.HasPrefix(prefix, []byte("%PDF")) {
		return fmt.Errorf("download did not return valid pdf")
	}

	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		os.Remove(target)
		return fmt.Errorf("failed to write data to file: %w", err)
	}

	return nil
}
