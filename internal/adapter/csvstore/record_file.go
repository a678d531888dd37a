package csvstore

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/user/feed-harvester/internal/entity"
)

// Columns is the header of the records file.
var Columns = []string{"id", "name", "profile_url", "content", "post_url", "group_images", "profile_images", "create_at"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RecordFile is the durable comma-separated records file. Multi-valued fields
// are stored as space-joined URLs.
type RecordFile struct {
	path string
	mu   sync.Mutex
}

func NewRecordFile(path string) *RecordFile {
	return &RecordFile{path: path}
}

func (f *RecordFile) Path() string {
	return f.path
}

// SaveAll appends records, writing the header first when the file is new or empty.
func (f *RecordFile) SaveAll(_ context.Context, records []entity.Record) error {
	if len(records) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating records directory: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening records file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	bufw := bufio.NewWriter(file)
	w := csv.NewWriter(bufw)
	if info.Size() == 0 {
		if err := w.Write(Columns); err != nil {
			return err
		}
	}
	for _, rec := range records {
		if err := w.Write(toRow(rec)); err != nil {
			return fmt.Errorf("writing record %s: %w", rec.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := bufw.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

// IDs returns the id column. A missing or empty file yields no ids.
func (f *RecordFile) IDs(_ context.Context) ([]string, error) {
	var ids []string
	err := f.scan(func(row []string, col map[string]int) {
		if id := field(row, col, "id"); id != "" {
			ids = append(ids, id)
		}
	})
	return ids, err
}

// ReadAll parses every stored record.
func (f *RecordFile) ReadAll(_ context.Context) ([]entity.Record, error) {
	var records []entity.Record
	err := f.scan(func(row []string, col map[string]int) {
		records = append(records, entity.Record{
			ID:               field(row, col, "id"),
			AuthorName:       field(row, col, "name"),
			AuthorProfileURL: field(row, col, "profile_url"),
			Content:          field(row, col, "content"),
			PostURL:          field(row, col, "post_url"),
			ImageURLs:        strings.Fields(field(row, col, "group_images")),
			ProfileImages:    strings.Fields(field(row, col, "profile_images")),
			CreatedAt:        field(row, col, "create_at"),
		})
	})
	return records, err
}

// scan skips the header row and hands every data row to fn along with the
// header's column positions.
func (f *RecordFile) scan(fn func(row []string, col map[string]int)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening records file: %w", err)
	}
	defer file.Close()

	br := bufio.NewReader(file)
	if head, _ := br.Peek(len(utf8BOM)); string(head) == string(utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading records header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	if _, ok := col["id"]; !ok {
		return fmt.Errorf("records file %s has no id column", f.path)
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading records file: %w", err)
		}
		fn(row, col)
	}
}

func toRow(rec entity.Record) []string {
	return []string{
		rec.ID,
		rec.AuthorName,
		rec.AuthorProfileURL,
		rec.Content,
		rec.PostURL,
		strings.Join(rec.ImageURLs, " "),
		strings.Join(rec.ProfileImages, " "),
		rec.CreatedAt,
	}
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
