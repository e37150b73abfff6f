package license

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsConfig locates a key column in a Google Sheet.
type SheetsConfig struct {
	SpreadsheetID   string
	Range           string
	APIKey          string
	CredentialsFile string
}

// SheetsKeySource reads keys from the first cell of each row in a sheet range.
type SheetsKeySource struct {
	service       *sheets.Service
	spreadsheetID string
	readRange     string
}

// NewSheetsKeySource builds the Sheets client. Extra client options are
// appended after the credential option, so tests can point the client at a
// local endpoint.
func NewSheetsKeySource(ctx context.Context, cfg SheetsConfig, extra ...option.ClientOption) (*SheetsKeySource, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets key source requires a spreadsheet id")
	}
	readRange := cfg.Range
	if readRange == "" {
		readRange = "A:A"
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, extra...)

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsKeySource{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     readRange,
	}, nil
}

func (s *SheetsKeySource) FetchKeys(ctx context.Context) ([]string, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read key range from sheets: %w", err)
	}

	keys := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		key := strings.TrimSpace(fmt.Sprint(row[0]))
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *SheetsKeySource) Describe() string {
	return fmt.Sprintf("sheets %s!%s", s.spreadsheetID, s.readRange)
}
