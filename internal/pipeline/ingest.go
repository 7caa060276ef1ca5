package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"
)

// GenericRecord is one CSV row keyed by cleaned header name
type GenericRecord map[string]string

// RawTable is a parsed CSV file
type RawTable struct {
	Source string
	Header []string
	Rows   []GenericRecord
}

// Ingester reads CSV sources from disk or over HTTP
type Ingester struct {
	client *http.Client
	retry  *RetryManager
	logger *zap.Logger
}

// NewIngester creates an ingester. A nil client uses http.DefaultClient.
func NewIngester(client *http.Client, retry *RetryManager, logger *zap.Logger) *Ingester {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if retry == nil {
		retry = NewRetryManager(DefaultRetryConfig, logger)
	}
	return &Ingester{client: client, retry: retry, logger: logger}
}

// ------------------- CSV Ingestion -------------------

// ReadTable reads a whole CSV file from a local path or an http(s) URL.
func (in *Ingester) ReadTable(ctx context.Context, pathOrURL string) (*RawTable, error) {
	in.logger.Debug("reading source", zap.String("source", pathOrURL))

	var data []byte
	if isRemote(pathOrURL) {
		err := in.retry.Do(ctx, "fetch "+pathOrURL, func(ctx context.Context) error {
			body, err := in.fetch(ctx, pathOrURL)
			if err != nil {
				return err
			}
			data = body
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		body, err := os.ReadFile(pathOrURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		data = body
	}

	table, err := ParseTable(pathOrURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	in.logger.Info("source read",
		zap.String("source", pathOrURL),
		zap.Int("columns", len(table.Header)),
		zap.Int("rows", len(table.Rows)))
	return table, nil
}

func (in *Ingester) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}
	resp, err := in.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET CSV: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to GET CSV: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV body: %w", err)
	}
	return body, nil
}

// ParseTable parses CSV text. Header names are trimmed and stripped of quotes
// and a byte order mark; short rows are padded with empty cells.
func ParseTable(source string, r io.Reader) (*RawTable, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err == io.EOF {
		return nil, &SchemaError{Source: source, Reason: "file is empty"}
	}
	if err != nil {
		return nil, &SchemaError{Source: source, Reason: "failed to read CSV header", Err: err}
	}
	for i, h := range headers {
		headers[i] = cleanHeader(h)
	}

	table := &RawTable{Source: source, Header: headers}
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SchemaError{Source: source, Reason: "CSV read error", Err: err}
		}
		if isBlankRecord(record) {
			continue
		}
		rec := make(GenericRecord, len(headers))
		for i, h := range headers {
			if i < len(record) {
				rec[h] = record[i]
			} else {
				rec[h] = ""
			}
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

func cleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ReplaceAll(h, `"`, "")
	return strings.TrimSpace(h)
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isRemote(pathOrURL string) bool {
	lower := strings.ToLower(pathOrURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
