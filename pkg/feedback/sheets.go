package feedback

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Credentials is an installed-app OAuth client plus a long-lived refresh token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type SheetsLogger struct {
	service *sheets.Service
}

var _ Logger = (*SheetsLogger)(nil)

func NewSheetsLogger(ctx context.Context, creds Credentials, opts ...option.ClientOption) (*SheetsLogger, error) {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scopes:       []string{sheets.SpreadsheetsScope},
		Endpoint:     google.Endpoint,
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	clientOpts := append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	srv, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsLogger{service: srv}, nil
}

func (s *SheetsLogger) Append(ctx context.Context, spreadsheetID, rangeName, valueInputOption string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := s.service.Spreadsheets.Values.
		Append(spreadsheetID, rangeName, &sheets.ValueRange{Values: rows}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append feedback rows: %w", err)
	}
	return nil
}
