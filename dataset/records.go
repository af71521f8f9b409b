package dataset

// Record is a single row keyed by column name, as received by the prediction API.
type Record map[string]string

// Records is a row-oriented table. It satisfies the same read interface as Frame
// so that a fitted pipeline can score request payloads directly.
type Records []Record

// NumRows returns the number of records.
func (r Records) NumRows() int { return len(r) }

// Value returns the cell for column in record row; ok is false when the record
// does not carry that column.
func (r Records) Value(row int, column string) (string, bool) {
	v, ok := r[row][column]
	return v, ok
}
