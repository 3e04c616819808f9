package feedback

import "context"

// Logger appends rows to a spreadsheet range.
type Logger interface {
	Append(ctx context.Context, spreadsheetID, rangeName, valueInputOption string, rows [][]interface{}) error
}

// NoopLogger is used when no spreadsheet is configured.
type NoopLogger struct{}

func (NoopLogger) Append(context.Context, string, string, string, [][]interface{}) error {
	return nil
}
