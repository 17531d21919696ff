package port

import "context"

// ImportArchive keeps the raw bytes of every uploaded swipe workbook so an
// import can be traced back to the file it came from.
type ImportArchive interface {
	// Store saves content and returns the archive-relative path
	Store(ctx context.Context, filename string, content []byte) (string, error)
}
