package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"penumbra/penumbra/cache"
	"penumbra/penumbra/citations"
	"penumbra/penumbra/fulltext"
	"penumbra/penumbra/papers"
	"penumbra/penumbra/pdf"
	"penumbra/penumbra/pubmed"
	"penumbra/penumbra/search"
	"time"

	"github.com/joho/godotenv"
)

// Config is the environment surface shared by the backend and the cli. NCBI
// requires a contact email on every request, so startup fails without one.
type Config struct {
	Email    string `env:"PUBMED_EMAIL,notEmpty,required"`
	ApiKey   string `env:"PUBMED_API_KEY"`
	ToolName string `env:"PUBMED_TOOL_NAME" envDefault:"penumbra"`

	RateLimit       float64 `env:"PUBMED_RATE_LIMIT"`
	DownloadTimeout int     `env:"PUBMED_DOWNLOAD_TIMEOUT" envDefault:"20"`

	PdfDir      string `env:"PUBMED_PDF_DIR" envDefault:"papers/pdf"`
	MarkdownDir string `env:"PUBMED_MARKDOWN_DIR" envDefault:"papers/markdown"`

	ForceOcr    bool   `env:"PUBMED_FORCE_OCR" envDefault:"false"`
	OcrLanguage string `env:"PUBMED_OCR_LANGUAGE"`

	// Journal name to tier overrides as a JSON object, e.g.
	// {"Nature Medicine": "tier_1"}.
	JournalTiers string `env:"JOURNAL_TIERS"`

	SemanticScholarKey string `env:"SEMANTIC_SCHOLAR_API_KEY"`
	SerpapiKey         string `env:"SERPAPI_KEY"`

	S3CacheBucket string `env:"S3_CACHE_BUCKET"`
	CitationCache string `env:"CITATION_CACHE"`
}

func (c *Config) journalTierOverrides() map[string]string {
	if c.JournalTiers == "" {
		return nil
	}

	var overrides map[string]string
	if err := json.Unmarshal([]byte(c.JournalTiers), &overrides); err != nil {
		log.Fatalf("error parsing JOURNAL_TIERS: %v", err)
	}
	return overrides
}

// BuildSearcher wires the full pipeline from config. The returned closer
// releases the citation cache; call it on shutdown.
func BuildSearcher(config Config) (*search.Searcher, func()) {
	tiers := papers.NewTierTable(config.journalTierOverrides())

	client := pubmed.NewClient(pubmed.ClientConfig{
		Email:             config.Email,
		ApiKey:            config.ApiKey,
		ToolName:          config.ToolName,
		RequestsPerSecond: config.RateLimit,
	})

	closer := func() {}

	var citationCache *cache.DataCache[papers.Citation]
	if config.CitationCache != "" {
		c, err := cache.NewCache[papers.Citation]("citations", config.CitationCache)
		if err != nil {
			log.Fatalf("error opening citation cache: %v", err)
		}
		citationCache = &c
		closer = func() {
			if err := c.Close(); err != nil {
				slog.Error("error closing citation cache", "error", err)
			}
		}
	}

	providers := []citations.Provider{citations.NewSemanticScholar(config.SemanticScholarKey)}
	if config.SerpapiKey != "" {
		providers = append(providers, citations.NewGoogleScholar(config.SerpapiKey))
	} else {
		slog.Info("no SERPAPI_KEY set, google scholar citation fallback disabled")
	}

	var s3Cache *pdf.S3Cache
	if config.S3CacheBucket != "" {
		var err error
		s3Cache, err = pdf.NewS3Cache(context.Background(), config.S3CacheBucket)
		if err != nil {
			log.Fatalf("error initializing S3 pdf cache: %v", err)
		}
	}

	searcher := search.NewSearcher(search.Deps{
		Source:     client,
		Normalizer: pubmed.NewNormalizer(tiers),
		Citations:  citations.NewChain(citationCache, providers...),
		FullText:   fulltext.NewResolver(),
		Pdf:        pdf.NewDownloader(config.PdfDir, time.Duration(config.DownloadTimeout)*time.Second, s3Cache),
		Markdown: pdf.NewConverter(config.MarkdownDir, pdf.ConvertOptions{
			ForceOCR:    config.ForceOcr,
			OCRLanguage: config.OcrLanguage,
		}),
	})

	return searcher, closer
}

func InitLogging(logFile *os.File) {
	log.SetFlags(log.Lshortfile | log.Ltime | log.Ldate)
	log.SetOutput(io.MultiWriter(logFile, os.Stderr))
	slog.Info("logging initialized", "log_file", logFile.Name())
}

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}
