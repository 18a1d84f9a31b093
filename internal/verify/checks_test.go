package verify

import (
	"testing"

	"github.com/ilkin0/docguard/internal/policy"
	"github.com/ilkin0/docguard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionOf(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"resume.pdf", "pdf"},
		{"Resume.PDF", "pdf"},
		{"archive.tar.gz", "gz"},
		{"photo.JpEg", "jpeg"},
		{"noextension", ""},
		{"trailingdot.", ""},
		{"", ""},
		{".pdf", "pdf"},
		{"my.resume.docx", "docx"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtensionOf(tt.filename))
		})
	}
}

func TestResolveType_Success(t *testing.T) {
	table := policy.Default()

	for _, ext := range testutil.SupportedExtensions() {
		t.Run(ext, func(t *testing.T) {
			entry, err := ResolveType(table, "file."+ext, testutil.ContentType(ext))
			require.NoError(t, err)
			assert.Equal(t, ext, entry.Extension())
		})
	}
}

func TestResolveType_CaseInsensitiveContentType(t *testing.T) {
	entry, err := ResolveType(policy.Default(), "CV.PDF", "Application/PDF")

	require.NoError(t, err)
	assert.Equal(t, "pdf", entry.Extension())
}

func TestResolveType_UnknownExtension(t *testing.T) {
	tests := []string{"payload.exe", "notes.txt", "noextension", "trailing.", "script.js"}

	for _, filename := range tests {
		t.Run(filename, func(t *testing.T) {
			entry, err := ResolveType(policy.Default(), filename, "application/pdf")

			require.Error(t, err)
			assert.Nil(t, entry)
			assert.Equal(t, RuleExtension, RuleOf(err))
			assert.True(t, IsPolicyViolation(err))
			assert.Equal(t, "File type not allowed. Allowed types: pdf, doc, docx, jpg, jpeg, png", err.Error())
		})
	}
}

func TestResolveType_MIMEMismatch(t *testing.T) {
	_, err := ResolveType(policy.Default(), "resume.pdf", "image/png")

	require.Error(t, err)
	assert.Equal(t, RuleMIME, RuleOf(err))
	assert.Contains(t, err.Error(), `"image/png"`)
	assert.Contains(t, err.Error(), ".pdf")
}

func TestCheckSize(t *testing.T) {
	entry, ok := policy.Default().Lookup("pdf")
	require.True(t, ok)

	tests := []struct {
		name        string
		size        int64
		expectError string
	}{
		{"one byte", 1, ""},
		{"exactly at cap", policy.DocumentMaxSize, ""},
		{"empty", 0, "File is empty"},
		{"negative", -1, "File size is invalid"},
		{"one byte over", policy.DocumentMaxSize + 1, "exceeds the maximum allowed size"},
		{"far over", 7_300_000, "File size 7.3 MB exceeds the maximum allowed size of 5.0 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSize(entry, tt.size)
			if tt.expectError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, RuleSize, RuleOf(err))
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestCheckSize_EmptyDistinctFromTooLarge(t *testing.T) {
	entry, _ := policy.Default().Lookup("png")

	empty := CheckSize(entry, 0)
	large := CheckSize(entry, policy.ImageMaxSize+1)

	require.Error(t, empty)
	require.Error(t, large)
	assert.NotEqual(t, empty.Error(), large.Error())
	assert.NotContains(t, empty.Error(), "exceeds")
	assert.NotContains(t, large.Error(), "empty")
}

func TestCheckSize_OneByteOverUsesExactBytes(t *testing.T) {
	entry, _ := policy.Default().Lookup("pdf")

	err := CheckSize(entry, policy.DocumentMaxSize+1)

	require.Error(t, err)
	assert.Equal(t, "File size 5,000,001 bytes exceeds the maximum allowed size of 5,000,000 bytes", err.Error())
}

func TestCheckSignature(t *testing.T) {
	table := policy.Default()

	for _, ext := range testutil.SupportedExtensions() {
		entry, _ := table.Lookup(ext)

		t.Run(ext+" valid", func(t *testing.T) {
			assert.NoError(t, CheckSignature(entry, testutil.SampleFile(ext, 64)))
		})

		t.Run(ext+" truncated", func(t *testing.T) {
			shortest := len(entry.Signatures()[0])
			for _, sig := range entry.Signatures() {
				shortest = min(shortest, len(sig))
			}
			err := CheckSignature(entry, testutil.SampleFile(ext, shortest-1))
			require.Error(t, err)
			assert.Equal(t, RuleSignature, RuleOf(err))
		})

		t.Run(ext+" wrong bytes", func(t *testing.T) {
			err := CheckSignature(entry, []byte("plain text pretending to be a file"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "."+ext)
		})
	}
}

func TestCheckSignature_NoSignaturesConfigured(t *testing.T) {
	table := policy.MustNew([]policy.Rule{{Extension: "txt", MIMETypes: []string{"text/plain"}, MaxSize: 10}}, []string{"docs"})
	entry, _ := table.Lookup("txt")

	assert.NoError(t, CheckSignature(entry, nil))
	assert.NoError(t, CheckSignature(entry, []byte("anything")))
}

func TestCheckSignature_AnyAlternativeMatches(t *testing.T) {
	table := policy.MustNew([]policy.Rule{{
		Extension:  "gif",
		MIMETypes:  []string{"image/gif"},
		MaxSize:    10,
		Signatures: [][]byte{[]byte("GIF87a"), []byte("GIF89a")},
	}}, []string{"docs"})
	entry, _ := table.Lookup("gif")

	assert.NoError(t, CheckSignature(entry, []byte("GIF89a....")))
	assert.NoError(t, CheckSignature(entry, []byte("GIF87a....")))
	assert.Error(t, CheckSignature(entry, []byte("GIF8")))
}

func TestCheckDestination(t *testing.T) {
	table := policy.Default()

	assert.NoError(t, CheckDestination(table, policy.DestinationResumes))
	assert.NoError(t, CheckDestination(table, policy.DestinationDocuments))

	err := CheckDestination(table, "public-assets")
	require.Error(t, err)
	assert.Equal(t, RuleDestination, RuleOf(err))
	assert.Contains(t, err.Error(), "public-assets")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "2.3 MB", FormatSize(2_300_000))
	assert.Equal(t, "0 B", FormatSize(-5))
}
