package sink

import (
	"bytes"
	"encoding/json"
	"fmt"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/nucleus/dp-connector/pkg/donorperfect"
)

// encodeParquet writes records as one snappy-compressed Parquet file. Every
// column is an optional UTF8 string since the API returns text.
func encodeParquet(records []donorperfect.Record) ([]byte, error) {
	cols := columnsOf(records)
	if len(cols) == 0 {
		return nil, fmt.Errorf("parquet: no columns")
	}

	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewJSONWriter(parquetSchema(cols), pfw, 4)
	if err != nil {
		return nil, fmt.Errorf("parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, r := range records {
		row := make(map[string]*string, len(cols))
		for _, c := range cols {
			if v, ok := r.Get(c); ok {
				row[c] = &v
			}
		}
		line, err := json.Marshal(row)
		if err != nil {
			return nil, err
		}
		if err := pw.Write(string(line)); err != nil {
			_ = pw.WriteStop()
			return nil, fmt.Errorf("parquet row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("parquet flush: %w", err)
	}
	if err := pfw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parquetSchema(cols []string) string {
	fields := make([]map[string]string, len(cols))
	for i, c := range cols {
		fields[i] = map[string]string{
			"Tag": fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", c),
		}
	}
	b, _ := json.Marshal(map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	})
	return string(b)
}
