// Package dbf reads standalone dBase tables such as landslide risk layers.
package dbf

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LindsayBradford/go-dbf/godbf"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

// DefaultEncoding is used when no encoding is configured. Cells that are
// not valid UTF-8 are still decoded as Windows-874 downstream.
const DefaultEncoding = "UTF8"

// Load reads every record of the table at path.
func Load(path, encoding string) (*domain.Table, error) {
	if !strings.EqualFold(filepath.Ext(path), ".dbf") {
		return nil, fmt.Errorf("%w: %s is not a .dbf file", domain.ErrUnsupportedFile, filepath.Base(path))
	}
	if encoding == "" {
		encoding = DefaultEncoding
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dbf %s: %w", path, err)
	}
	data, err = withEOFMarker(data)
	if err != nil {
		return nil, fmt.Errorf("read dbf %s: %w", path, err)
	}
	t, err := godbf.NewFromByteArray(data, encoding)
	if err != nil {
		return nil, fmt.Errorf("open dbf %s: %w", path, err)
	}

	fields := t.FieldNames()
	rows := make([][]string, 0, t.NumberOfRecords())
	for i := 0; i < t.NumberOfRecords(); i++ {
		if t.RowIsDeleted(i) {
			continue
		}
		row := make([]string, len(fields))
		for j, name := range fields {
			v, err := t.FieldValueByName(i, name)
			if err != nil {
				return nil, fmt.Errorf("dbf %s record %d field %s: %w", path, i, name, err)
			}
			row[j] = strings.TrimSpace(v)
		}
		rows = append(rows, row)
	}
	return domain.NewTable(filepath.Base(path), fields, rows), nil
}

const eofMarker = 0x1A

// withEOFMarker appends the dBase end-of-file byte when a writer left it
// out. Files of any other unexpected length are returned unchanged for the
// decoder to reject.
func withEOFMarker(data []byte) ([]byte, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("%w: dbf header truncated (%d bytes)", domain.ErrInputShape, len(data))
	}
	records := int(binary.LittleEndian.Uint32(data[4:8]))
	header := int(binary.LittleEndian.Uint16(data[8:10]))
	recordLen := int(binary.LittleEndian.Uint16(data[10:12]))
	if len(data) == header+records*recordLen {
		return append(data, eofMarker), nil
	}
	return data, nil
}
