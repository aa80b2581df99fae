package coverage

import (
	"fmt"
	"io"
)

// maxReportSize bounds how much of a report file is read into memory.
// Coverage reports beyond this size are almost certainly hostile input.
const maxReportSize = 64 << 20

func readAllLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxReportSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxReportSize {
		return nil, fmt.Errorf("report exceeds %d bytes", maxReportSize)
	}
	return data, nil
}
