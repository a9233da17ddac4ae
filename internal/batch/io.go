package batch

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/segmentio/parquet-go"
	"github.com/xuri/excelize/v2"
)

// RecordReader yields input records until io.EOF
type RecordReader interface {
	Next() (InputRecord, error)
	Close() error
}

// RecordWriter persists output records in order
type RecordWriter interface {
	Write(records []OutputRecord) error
	Close() error
}

// OpenReader opens path with the reader matching its extension. Spreadsheets
// read their first sheet; PDF documents yield one record per page.
func OpenReader(path, textColumn, idColumn string) (RecordReader, error) {
	switch DetectFileFormat(path) {
	case FormatXLSX:
		return newXLSXReader(path, textColumn, idColumn)
	case FormatPDF:
		return newPDFReader(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	var r RecordReader
	switch DetectFileFormat(path) {
	case FormatParquet:
		r, err = newParquetReader(file, textColumn, idColumn)
	case FormatJSONL:
		r = newJSONLReader(file, textColumn, idColumn)
	default:
		r, err = newCSVReader(file, textColumn, idColumn)
	}
	if err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

// CreateWriter creates path with the writer matching its extension.
// Anything other than .parquet is written as JSON lines.
func CreateWriter(path string) (RecordWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	if DetectFileFormat(path) == FormatParquet {
		return newParquetWriter(file), nil
	}
	return newJSONLWriter(file), nil
}

// csvReader reads a CSV file with a header row
type csvReader struct {
	file    *os.File
	reader  *csv.Reader
	textIdx int
	idIdx   int
	row     int
}

func newCSVReader(file *os.File, textColumn, idColumn string) (*csvReader, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	r := &csvReader{file: file, reader: reader, textIdx: -1, idIdx: -1}
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case textColumn:
			r.textIdx = i
		case idColumn:
			r.idIdx = i
		}
	}
	if r.textIdx < 0 {
		return nil, fmt.Errorf("CSV header has no %q column", textColumn)
	}
	return r, nil
}

func (r *csvReader) Next() (InputRecord, error) {
	fields, err := r.reader.Read()
	if err != nil {
		return InputRecord{}, err
	}
	r.row++

	rec := InputRecord{ID: strconv.Itoa(r.row)}
	if r.textIdx < len(fields) {
		rec.Text = fields[r.textIdx]
	}
	if r.idIdx >= 0 && r.idIdx < len(fields) && fields[r.idIdx] != "" {
		rec.ID = fields[r.idIdx]
	}
	return rec, nil
}

func (r *csvReader) Close() error { return r.file.Close() }

// jsonlReader reads one JSON object per line
type jsonlReader struct {
	file       *os.File
	decoder    *json.Decoder
	textColumn string
	idColumn   string
	row        int
}

func newJSONLReader(file *os.File, textColumn, idColumn string) *jsonlReader {
	return &jsonlReader{
		file:       file,
		decoder:    json.NewDecoder(file),
		textColumn: textColumn,
		idColumn:   idColumn,
	}
}

func (r *jsonlReader) Next() (InputRecord, error) {
	var obj map[string]any
	if err := r.decoder.Decode(&obj); err != nil {
		if errors.Is(err, io.EOF) {
			return InputRecord{}, io.EOF
		}
		return InputRecord{}, fmt.Errorf("failed to decode JSON record %d: %w", r.row+1, err)
	}
	r.row++

	rec := InputRecord{ID: strconv.Itoa(r.row)}
	if text, ok := obj[r.textColumn].(string); ok {
		rec.Text = text
	}
	if id, ok := obj[r.idColumn]; ok && id != nil {
		rec.ID = fmt.Sprint(id)
	}
	return rec, nil
}

func (r *jsonlReader) Close() error { return r.file.Close() }

// parquetReader reads the text and id leaf columns of a Parquet file
type parquetReader struct {
	file    *os.File
	reader  *parquet.Reader
	textIdx int
	idIdx   int
	rows    []parquet.Row
	pending []parquet.Row
	row     int
}

func newParquetReader(file *os.File, textColumn, idColumn string) (*parquetReader, error) {
	reader := parquet.NewReader(file)
	schema := reader.Schema()

	text, ok := schema.Lookup(textColumn)
	if !ok {
		reader.Close()
		return nil, fmt.Errorf("parquet schema has no %q column", textColumn)
	}

	r := &parquetReader{
		file:    file,
		reader:  reader,
		textIdx: text.ColumnIndex,
		idIdx:   -1,
		rows:    make([]parquet.Row, 64),
	}
	if id, ok := schema.Lookup(idColumn); ok {
		r.idIdx = id.ColumnIndex
	}
	return r, nil
}

func (r *parquetReader) Next() (InputRecord, error) {
	if len(r.pending) == 0 {
		n, err := r.reader.ReadRows(r.rows)
		if n == 0 {
			if err == nil {
				err = io.EOF
			}
			return InputRecord{}, err
		}
		r.pending = r.rows[:n]
	}

	row := r.pending[0]
	r.pending = r.pending[1:]
	r.row++

	rec := InputRecord{ID: strconv.Itoa(r.row)}
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case r.textIdx:
			rec.Text = valueString(v)
		case r.idIdx:
			rec.ID = valueString(v)
		}
	}
	return rec, nil
}

func valueString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	default:
		return v.String()
	}
}

func (r *parquetReader) Close() error {
	r.reader.Close()
	return r.file.Close()
}

// xlsxReader streams the rows of the first worksheet
type xlsxReader struct {
	file    *excelize.File
	rows    *excelize.Rows
	textIdx int
	idIdx   int
	row     int
}

func newXLSXReader(path, textColumn, idColumn string) (*xlsxReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("spreadsheet %s has no sheets", path)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	r := &xlsxReader{file: f, rows: rows, textIdx: -1, idIdx: -1}
	if !rows.Next() {
		r.Close()
		return nil, fmt.Errorf("sheet %s has no header row", sheets[0])
	}
	header, err := rows.Columns()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case textColumn:
			r.textIdx = i
		case idColumn:
			r.idIdx = i
		}
	}
	if r.textIdx < 0 {
		r.Close()
		return nil, fmt.Errorf("sheet %s has no %q column", sheets[0], textColumn)
	}
	return r, nil
}

func (r *xlsxReader) Next() (InputRecord, error) {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return InputRecord{}, err
		}
		return InputRecord{}, io.EOF
	}
	cells, err := r.rows.Columns()
	if err != nil {
		return InputRecord{}, err
	}
	r.row++

	// rows come back without trailing empty cells
	rec := InputRecord{ID: strconv.Itoa(r.row)}
	if r.textIdx < len(cells) {
		rec.Text = cells[r.textIdx]
	}
	if r.idIdx >= 0 && r.idIdx < len(cells) && cells[r.idIdx] != "" {
		rec.ID = cells[r.idIdx]
	}
	return rec, nil
}

func (r *xlsxReader) Close() error {
	r.rows.Close()
	return r.file.Close()
}

// pdfReader yields the plain text of each page, keyed by page number
type pdfReader struct {
	file  *os.File
	doc   *pdf.Reader
	page  int
	pages int
}

func newPDFReader(path string) (*pdfReader, error) {
	file, doc, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &pdfReader{file: file, doc: doc, pages: doc.NumPage()}, nil
}

func (r *pdfReader) Next() (InputRecord, error) {
	for r.page < r.pages {
		r.page++
		page := r.doc.Page(r.page)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return InputRecord{}, fmt.Errorf("failed to extract text from page %d: %w", r.page, err)
		}
		return InputRecord{ID: strconv.Itoa(r.page), Text: text}, nil
	}
	return InputRecord{}, io.EOF
}

func (r *pdfReader) Close() error { return r.file.Close() }

// jsonlWriter writes one JSON object per line
type jsonlWriter struct {
	file    *os.File
	encoder *json.Encoder
}

func newJSONLWriter(file *os.File) *jsonlWriter {
	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	return &jsonlWriter{file: file, encoder: encoder}
}

func (w *jsonlWriter) Write(records []OutputRecord) error {
	for i := range records {
		if err := w.encoder.Encode(&records[i]); err != nil {
			return fmt.Errorf("failed to write JSON record: %w", err)
		}
	}
	return nil
}

func (w *jsonlWriter) Close() error { return w.file.Close() }

// parquetWriter writes OutputRecords as parquetRow values
type parquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[parquetRow]
}

func newParquetWriter(file *os.File) *parquetWriter {
	return &parquetWriter{file: file, writer: parquet.NewGenericWriter[parquetRow](file)}
}

func (w *parquetWriter) Write(records []OutputRecord) error {
	rows := make([]parquetRow, len(records))
	for i, rec := range records {
		breakdown, err := json.Marshal(rec.EntityBreakdown)
		if err != nil {
			return fmt.Errorf("failed to encode entity breakdown: %w", err)
		}
		rows[i] = parquetRow{
			ID:              rec.ID,
			AnonymizedText:  rec.AnonymizedText,
			EntitiesFound:   int64(rec.EntitiesFound),
			EntityBreakdown: string(breakdown),
			Error:           rec.Error,
		}
		if len(rec.Mappings) > 0 {
			mappings, err := json.Marshal(rec.Mappings)
			if err != nil {
				return fmt.Errorf("failed to encode mappings: %w", err)
			}
			rows[i].Mappings = string(mappings)
		}
	}
	if _, err := w.writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	return nil
}

func (w *parquetWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return w.file.Close()
}
