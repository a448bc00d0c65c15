// Package config resolves the service configuration: an optional
// pdferret.yml file overlaid by PDFERRET_* environment variables, with
// defaults for everything else. The resolved Config is a plain value;
// components copy what they need at construction time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// PDF extraction engines.
const (
	EngineTika         = "tika"
	EngineGrobid       = "grobid"
	EngineUnstructured = "unstructured"
)

// Config holds every knob of the extraction service.
type Config struct {
	// NProc bounds worker fan-out; BatchSize bounds how many documents one
	// executor batch holds.
	NProc     int `yaml:"nproc"`
	BatchSize int `yaml:"batchSize"`

	GrobidURL       string `yaml:"grobidUrl"`
	TikaServerURL   string `yaml:"tikaServerUrl"`
	UnstructuredURL string `yaml:"unstructuredUrl"`

	// TikaOCRStrategy is the env spelling: NO_OCR, AUTO, OCR_ONLY, or
	// OCR_AND_TEXT_EXTRACTION.
	TikaOCRStrategy string `yaml:"tikaOcrStrategy"`

	// PDFEngine selects the PDF pipeline: tika, grobid, or unstructured.
	PDFEngine string `yaml:"pdfEngine"`

	// MaxPages caps full-text extraction; VisualMaxPages caps page
	// rendering for visual description.
	MaxPages       int `yaml:"maxPages"`
	VisualMaxPages int `yaml:"visualMaxPages"`

	SimpleChunkerMaxLength int `yaml:"simpleChunkerMaxLength"`
	ChunkOverlap           int `yaml:"chunkOverlap"`

	// LLMBaseURL points at any OpenAI-compatible endpoint. Empty disables
	// model post-processing.
	LLMBaseURL  string `yaml:"llmBaseUrl"`
	LLMAPIKey   string `yaml:"llmApiKey"`
	TextModel   string `yaml:"textModel"`
	VisionModel string `yaml:"visionModel"`

	// DictDir holds spellcheck dictionaries, one <lang>.txt per language.
	DictDir string `yaml:"dictDir"`
}

// Load reads pdferret.yml or pdferret.yaml from dir, overlays PDFERRET_*
// environment variables, and fills remaining fields with defaults. A missing
// file is not an error.
func Load(dir string) (Config, error) {
	var cfg Config
	for _, name := range []string{"pdferret.yml", "pdferret.yaml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", name, err)
		}
		break
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the configuration with no file and no environment applied
// beyond defaults. Useful for tests and embedded use.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() error {
	envString("PDFERRET_GROBID_URL", &c.GrobidURL)
	envString("PDFERRET_TIKA_SERVER_URL", &c.TikaServerURL)
	envString("PDFERRET_UNSTRUCTURED_URL", &c.UnstructuredURL)
	envString("PDFERRET_TIKA_OCR_STRATEGY", &c.TikaOCRStrategy)
	envString("PDFERRET_PDF_ENGINE", &c.PDFEngine)
	envString("PDFERRET_LLM_BASE_URL", &c.LLMBaseURL)
	envString("PDFERRET_LLM_API_KEY", &c.LLMAPIKey)
	envString("PDFERRET_TEXT_MODEL", &c.TextModel)
	envString("PDFERRET_VISION_MODEL", &c.VisionModel)
	envString("PDFERRET_DICT_DIR", &c.DictDir)

	for _, v := range []struct {
		key string
		dst *int
	}{
		{"PDFERRET_NPROC", &c.NProc},
		{"PDFERRET_BATCH_SIZE", &c.BatchSize},
		{"PDFERRET_MAX_PAGES", &c.MaxPages},
		{"PDFERRET_VISUAL_MAX_PAGES", &c.VisualMaxPages},
		{"PDFERRET_SIMPLE_CHUNKER_MAX_LENGTH", &c.SimpleChunkerMaxLength},
		{"PDFERRET_CHUNK_OVERLAP", &c.ChunkOverlap},
	} {
		if err := envInt(v.key, v.dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.NProc <= 0 {
		c.NProc = runtime.NumCPU()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 2 * c.NProc
	}
	if c.GrobidURL == "" {
		c.GrobidURL = "http://localhost:8070"
	}
	if c.TikaServerURL == "" {
		c.TikaServerURL = "http://localhost:9998"
	}
	if c.UnstructuredURL == "" {
		c.UnstructuredURL = "http://localhost:8000"
	}
	if c.TikaOCRStrategy == "" {
		c.TikaOCRStrategy = "NO_OCR"
	}
	if c.PDFEngine == "" {
		c.PDFEngine = EngineTika
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 30
	}
	if c.VisualMaxPages <= 0 {
		c.VisualMaxPages = 3
	}
	if c.SimpleChunkerMaxLength <= 0 {
		c.SimpleChunkerMaxLength = 2000
	}
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: parse %s=%q: %w", key, v, err)
	}
	*dst = n
	return nil
}
