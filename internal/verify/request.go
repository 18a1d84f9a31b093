package verify

import (
	"errors"
	"fmt"
	"io"
)

type Mode string

const (
	ModeContent  Mode = "content"
	ModeMetadata Mode = "metadata"
)

// Request is either a ContentRequest or a MetadataRequest.
type Request interface {
	Mode() Mode
	sealed()
}

// ContentRequest carries the leading bytes of an uploaded file and its full size.
// Head must hold at least HeadSize bytes when the file is that large.
type ContentRequest struct {
	Filename    string
	ContentType string
	Destination string
	Size        int64
	Head        []byte
}

func (ContentRequest) Mode() Mode { return ModeContent }
func (ContentRequest) sealed()    {}

// MetadataRequest describes a file the service never receives.
// Sample is an optional leading byte sample used for the signature check.
type MetadataRequest struct {
	Filename    string
	ContentType string
	Destination string
	Size        int64
	Sample      []byte
}

func (MetadataRequest) Mode() Mode { return ModeMetadata }
func (MetadataRequest) sealed()    {}

// ReadContent keeps the first limit bytes of r and counts the remainder
// without buffering it. Only io.EOF ends the stream cleanly.
func ReadContent(r io.Reader, limit int) ([]byte, int64, error) {
	head := make([]byte, limit)
	n := 0
	for n < limit {
		m, err := r.Read(head[n:])
		n += m
		if errors.Is(err, io.EOF) {
			return head[:n], int64(n), nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read file head: %w", err)
		}
	}

	rest, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read file body: %w", err)
	}

	return head, int64(n) + rest, nil
}
