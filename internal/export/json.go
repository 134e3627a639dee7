package export

import (
	"bufio"
	"io"
	"iter"

	"github.com/goccy/go-json"

	"github.com/simp-lee/catalog/internal/domain"
)

// JSON writes a JSON array of objects holding the requested columns in order.
type JSON struct{}

// Format returns the registry format name.
func (JSON) Format() string { return "json" }

// Extension returns the file extension without the dot.
func (JSON) Extension() string { return "json" }

// ContentType returns the MIME type of the output.
func (JSON) ContentType() string { return "application/json" }

// Export writes rows as one JSON array to w and returns the number of rows written.
func (JSON) Export(w io.Writer, rows iter.Seq2[domain.Row, error], columns []string) (int, error) {
	bw := bufio.NewWriter(w)

	keys := make([][]byte, len(columns))
	for i, c := range columns {
		k, err := json.Marshal(c)
		if err != nil {
			return 0, err
		}
		keys[i] = k
	}

	if _, err := bw.WriteString("["); err != nil {
		return 0, err
	}

	n := 0
	for row, err := range rows {
		if err != nil {
			bw.Flush()
			return n, err
		}
		if n > 0 {
			bw.WriteByte(',')
		}
		bw.WriteByte('{')
		for i, v := range record(row, columns) {
			if i > 0 {
				bw.WriteByte(',')
			}
			val, err := json.Marshal(v)
			if err != nil {
				return n, err
			}
			bw.Write(keys[i])
			bw.WriteByte(':')
			bw.Write(val)
		}
		if err := bw.WriteByte('}'); err != nil {
			return n, err
		}
		n++
	}

	if _, err := bw.WriteString("]\n"); err != nil {
		return n, err
	}
	return n, bw.Flush()
}
