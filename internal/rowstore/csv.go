package rowstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dbsmedya/goerd/internal/config"
	"github.com/dbsmedya/goerd/internal/types"
)

func init() {
	Register("csv", func(_ context.Context, cfg *config.SourceConfig) (Store, error) {
		return NewCSVStore(cfg.Path, cfg.NullTokens)
	})
}

// CSVStore serves a directory of CSV files, one table per file. The table name
// is the file name without its extension. The first record is the header.
type CSVStore struct {
	dir        string
	files      map[string]string
	nullTokens map[string]bool
}

// NewCSVStore scans dir for *.csv files. Cells equal to one of nullTokens are NULL.
func NewCSVStore(dir string, nullTokens []string) (*CSVStore, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv directory: %w", err)
	}

	files := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		table := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if prev, dup := files[table]; dup {
			return nil, fmt.Errorf("tables %s and %s map to the same name %q", prev, e.Name(), table)
		}
		files[table] = e.Name()
	}

	tokens := make(map[string]bool, len(nullTokens))
	for _, t := range nullTokens {
		tokens[t] = true
	}

	return &CSVStore{dir: dir, files: files, nullTokens: tokens}, nil
}

// ListTableNames returns the table names in sorted order.
func (s *CSVStore) ListTableNames(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// ReadRows parses the whole file. Short records leave trailing columns unset.
func (s *CSVStore) ReadRows(ctx context.Context, table string) ([]types.Row, error) {
	file, ok := s.files[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	f, err := os.Open(filepath.Join(s.dir, file))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", file, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	var rows []types.Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read %s: %w", file, err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("csv read %s: line %d has %d fields, header has %d", file, line, len(rec), len(header))
		}

		row := types.NewRow()
		for i, v := range rec {
			if s.nullTokens[v] {
				row.Set(header[i], nil)
			} else {
				row.Set(header[i], v)
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Close is a no-op; files are opened per read.
func (s *CSVStore) Close() error {
	return nil
}
