package policy

import "github.com/dustin/go-humanize"

const (
	DestinationResumes   = "resume-documents"
	DestinationDocuments = "documents"

	DocumentMaxSize = 5 * humanize.MByte
	ImageMaxSize    = 10 * humanize.MByte
)

var (
	sigPDF  = []byte("%PDF")
	sigOLE  = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	sigZIP  = []byte{0x50, 0x4B, 0x03, 0x04}
	sigJPEG = []byte{0xFF, 0xD8, 0xFF}
	sigPNG  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
)

func DefaultRules() []Rule {
	return []Rule{
		{
			Extension:  "pdf",
			MIMETypes:  []string{"application/pdf"},
			MaxSize:    DocumentMaxSize,
			Signatures: [][]byte{sigPDF},
		},
		{
			Extension:  "doc",
			MIMETypes:  []string{"application/msword"},
			MaxSize:    DocumentMaxSize,
			Signatures: [][]byte{sigOLE},
		},
		{
			Extension:  "docx",
			MIMETypes:  []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
			MaxSize:    DocumentMaxSize,
			Signatures: [][]byte{sigZIP},
		},
		{
			Extension:  "jpg",
			MIMETypes:  []string{"image/jpeg", "image/jpg"},
			MaxSize:    ImageMaxSize,
			Signatures: [][]byte{sigJPEG},
		},
		{
			Extension:  "jpeg",
			MIMETypes:  []string{"image/jpeg", "image/jpg"},
			MaxSize:    ImageMaxSize,
			Signatures: [][]byte{sigJPEG},
		},
		{
			Extension:  "png",
			MIMETypes:  []string{"image/png"},
			MaxSize:    ImageMaxSize,
			Signatures: [][]byte{sigPNG},
		},
	}
}

func DefaultDestinations() []string {
	return []string{DestinationResumes, DestinationDocuments}
}

// Default builds the stock table used by the service and the fallback client.
func Default() *Table {
	return MustNew(DefaultRules(), DefaultDestinations())
}
