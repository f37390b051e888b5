package orchestrators

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"orgconsole/internal/domain/bulk"
)

// MaxImportBytes caps the size of an uploaded roster.
const MaxImportBytes = 1 << 20

// Import errors
var (
	ErrImportTooLarge = errors.New("CSV file is larger than 1 MB")
	ErrImportNotCSV   = errors.New("please choose a .csv file")
)

// ImportRosterInput carries an uploaded roster file.
// PRE: Session is in Editing; FileName is the client-side name and may be empty
type ImportRosterInput struct {
	Session  *bulk.Session
	FileName string
	File     io.Reader
}

// ImportRosterResult reports how many identifiers replaced the entry list.
type ImportRosterResult struct {
	Imported int
}

// ExecuteImportRoster reads a roster file into the session.
// PRE: Session is in Editing
// POST: On success the entry list is exactly the file's identifiers; on any failure the
//
//	list is unchanged and the session carries the inline error.
func ExecuteImportRoster(input ImportRosterInput) (ImportRosterResult, error) {
	s := input.Session
	if s == nil {
		return ImportRosterResult{}, ErrNoSession
	}

	if name := strings.TrimSpace(input.FileName); name != "" && !strings.EqualFold(filepath.Ext(name), ".csv") {
		return ImportRosterResult{}, rejectImport(s, ErrImportNotCSV)
	}

	data, err := io.ReadAll(io.LimitReader(input.File, MaxImportBytes+1))
	if err != nil {
		return ImportRosterResult{}, rejectImport(s, err)
	}
	if len(data) > MaxImportBytes {
		return ImportRosterResult{}, rejectImport(s, ErrImportTooLarge)
	}

	n, err := s.ImportCSV(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, bulk.ErrLocked) || errors.Is(err, bulk.ErrInvalidTransition) {
			return ImportRosterResult{}, err
		}
		slog.Info("bulk_import_rejected", "kind", s.Kind(), "file", input.FileName, "err", err)
		return ImportRosterResult{}, err
	}
	slog.Info("bulk_import", "kind", s.Kind(), "file", input.FileName, "imported", n)
	return ImportRosterResult{Imported: n}, nil
}

func rejectImport(s *bulk.Session, err error) error {
	if s.View().State == bulk.StateEditing {
		s.SetError(err.Error())
	}
	slog.Info("bulk_import_rejected", "kind", s.Kind(), "err", err)
	return err
}
