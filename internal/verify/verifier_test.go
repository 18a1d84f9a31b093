package verify

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/ilkin0/docguard/internal/policy"
	"github.com/ilkin0/docguard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentRequest(ext string, content []byte) ContentRequest {
	return ContentRequest{
		Filename:    "candidate." + ext,
		ContentType: testutil.ContentType(ext),
		Destination: policy.DestinationResumes,
		Size:        int64(len(content)),
		Head:        content,
	}
}

func TestVerify_ValidFilePerExtension(t *testing.T) {
	v := New(policy.Default())

	for _, ext := range testutil.SupportedExtensions() {
		t.Run(ext, func(t *testing.T) {
			res := v.Verify(contentRequest(ext, testutil.SampleFile(ext, 2048)))

			require.True(t, res.Valid, res.Error)
			assert.Empty(t, res.Error)
			require.NotNil(t, res.Details)
			assert.Equal(t, "candidate."+ext, res.Details.Filename)
			assert.Equal(t, ext, res.Details.Extension)
			assert.Equal(t, testutil.ContentType(ext), res.Details.ContentType)
			assert.Equal(t, int64(2048), res.Details.Size)
			assert.Equal(t, "2.0 kB", res.Details.SizeFormatted)
			assert.True(t, res.Details.SignatureValid)
		})
	}
}

func TestVerify_TruncatedBelowSignature(t *testing.T) {
	v := New(policy.Default())

	for _, ext := range testutil.SupportedExtensions() {
		t.Run(ext, func(t *testing.T) {
			entry, _ := v.Table().Lookup(ext)
			shortest := len(entry.Signatures()[0])
			for _, sig := range entry.Signatures() {
				shortest = min(shortest, len(sig))
			}

			_, err := v.Check(contentRequest(ext, testutil.SampleFile(ext, shortest-1)))

			require.Error(t, err)
			assert.Equal(t, RuleSignature, RuleOf(err))
		})
	}
}

func TestVerify_TextRenamedToPDF(t *testing.T) {
	v := New(policy.Default())

	_, err := v.Check(contentRequest("pdf", []byte("Dear hiring manager,\nplease find my resume attached.")))

	require.Error(t, err)
	assert.Equal(t, RuleSignature, RuleOf(err))
	assert.Equal(t, "File content does not match the expected format for .pdf files", err.Error())
}

func TestVerify_UnknownExtensionAlwaysRejected(t *testing.T) {
	v := New(policy.Default())

	requests := []Request{
		ContentRequest{Filename: "run.exe", ContentType: "application/pdf", Destination: policy.DestinationResumes, Size: 100, Head: testutil.SampleFile("pdf", 100)},
		ContentRequest{Filename: "run.exe", ContentType: "application/x-msdownload", Destination: "nowhere", Size: 0},
		MetadataRequest{Filename: "notes.txt", ContentType: "text/plain", Destination: policy.DestinationDocuments, Size: 10},
		MetadataRequest{Filename: "README", ContentType: "application/pdf", Destination: policy.DestinationDocuments, Size: 10},
	}

	for _, req := range requests {
		_, err := v.Check(req)
		require.Error(t, err)
		assert.Equal(t, RuleExtension, RuleOf(err))
	}
}

func TestVerify_MIMEMismatchBeforeSignature(t *testing.T) {
	v := New(policy.Default())

	// Content is not a PDF either; the MIME check must fire first.
	req := ContentRequest{
		Filename:    "resume.pdf",
		ContentType: "image/png",
		Destination: policy.DestinationResumes,
		Size:        16,
		Head:        []byte("not a pdf at all"),
	}

	_, err := v.Check(req)

	require.Error(t, err)
	assert.Equal(t, RuleMIME, RuleOf(err))
}

func TestVerify_EmptyFile(t *testing.T) {
	v := New(policy.Default())

	for _, ext := range testutil.SupportedExtensions() {
		res := v.Verify(contentRequest(ext, nil))

		assert.False(t, res.Valid)
		assert.Equal(t, "File is empty", res.Error)
		assert.Nil(t, res.Details)
	}
}

func TestVerify_SizeBoundary(t *testing.T) {
	v := New(policy.Default())

	tests := []struct {
		ext   string
		limit int64
	}{
		{"pdf", policy.DocumentMaxSize},
		{"docx", policy.DocumentMaxSize},
		{"png", policy.ImageMaxSize},
		{"jpg", policy.ImageMaxSize},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			req := contentRequest(tt.ext, testutil.SampleFile(tt.ext, 64))

			req.Size = tt.limit
			assert.True(t, v.Verify(req).Valid)

			req.Size = tt.limit + 1
			_, err := v.Check(req)
			require.Error(t, err)
			assert.Equal(t, RuleSize, RuleOf(err))
			assert.Contains(t, err.Error(), "exceeds")
		})
	}
}

func TestVerify_SuspiciousContentWindow(t *testing.T) {
	v := New(policy.Default())
	payload := []byte("<script>document.location='https://evil'</script>")

	t.Run("inside window rejects despite valid signature", func(t *testing.T) {
		content := append(testutil.SampleFile("pdf", 4096), payload...)

		_, err := v.Check(contentRequest("pdf", content))

		require.Error(t, err)
		assert.Equal(t, RuleContent, RuleOf(err))
	})

	t.Run("after byte 10240 is accepted", func(t *testing.T) {
		content := append(testutil.SampleFile("pdf", ScanWindow), payload...)
		require.Greater(t, len(content), ScanWindow)

		head, size, err := ReadContent(bytes.NewReader(content), v.HeadSize())
		require.NoError(t, err)

		req := contentRequest("pdf", head)
		req.Size = size

		res := v.Verify(req)
		assert.True(t, res.Valid, res.Error)
	})
}

func TestVerify_DestinationRejected(t *testing.T) {
	v := New(policy.Default())

	req := contentRequest("pdf", testutil.SampleFile("pdf", 128))
	req.Destination = "public"

	res := v.Verify(req)

	assert.False(t, res.Valid)
	assert.Equal(t, `Destination "public" is not allowed`, res.Error)
}

func TestVerify_DestinationCheckedLast(t *testing.T) {
	v := New(policy.Default())

	req := contentRequest("pdf", []byte("garbage"))
	req.Destination = "public"

	_, err := v.Check(req)

	require.Error(t, err)
	assert.Equal(t, RuleSignature, RuleOf(err))
}

func TestVerify_MetadataWithoutSample(t *testing.T) {
	v := New(policy.Default())

	req := MetadataRequest{
		Filename:    "resume.docx",
		ContentType: testutil.ContentType("docx"),
		Destination: policy.DestinationDocuments,
		Size:        48_000,
	}

	res := v.Verify(req)

	require.True(t, res.Valid)
	assert.True(t, res.Details.SignatureValid)
	assert.Equal(t, "48 kB", res.Details.SizeFormatted)
}

func TestVerify_MetadataWithSample(t *testing.T) {
	v := New(policy.Default())

	req := MetadataRequest{
		Filename:    "photo.png",
		ContentType: "image/png",
		Destination: policy.DestinationDocuments,
		Size:        48_000,
		Sample:      testutil.Header("png"),
	}
	assert.True(t, v.Verify(req).Valid)

	req.Sample = testutil.Header("jpg")
	_, err := v.Check(req)
	require.Error(t, err)
	assert.Equal(t, RuleSignature, RuleOf(err))
}

func TestVerify_MetadataSkipsContentScan(t *testing.T) {
	v := New(policy.Default())

	req := MetadataRequest{
		Filename:    "resume.pdf",
		ContentType: "application/pdf",
		Destination: policy.DestinationResumes,
		Size:        100,
		Sample:      []byte("%PDF<script>"),
	}

	assert.True(t, v.Verify(req).Valid)
}

type unknownRequest struct{ MetadataRequest }

func TestVerify_UnknownRequestVariant(t *testing.T) {
	v := New(policy.Default())

	_, err := v.Check(unknownRequest{})
	require.Error(t, err)
	assert.Equal(t, Kind(0), KindOf(err))

	res := v.Verify(unknownRequest{})
	assert.False(t, res.Valid)
	assert.Equal(t, InternalMessage, res.Error)
}

func TestVerifier_HeadSize(t *testing.T) {
	assert.Equal(t, ScanWindow, New(policy.Default()).HeadSize())
}

func TestReadContent(t *testing.T) {
	t.Run("small input", func(t *testing.T) {
		head, size, err := ReadContent(strings.NewReader("abc"), 10)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), head)
		assert.Equal(t, int64(3), size)
	})

	t.Run("large input keeps only head", func(t *testing.T) {
		data := bytes.Repeat([]byte("x"), 50_000)
		head, size, err := ReadContent(bytes.NewReader(data), 1024)
		require.NoError(t, err)
		assert.Len(t, head, 1024)
		assert.Equal(t, int64(50_000), size)
	})

	t.Run("empty input", func(t *testing.T) {
		head, size, err := ReadContent(strings.NewReader(""), 10)
		require.NoError(t, err)
		assert.Empty(t, head)
		assert.Equal(t, int64(0), size)
	})

	t.Run("truncated stream is an error", func(t *testing.T) {
		r := io.MultiReader(strings.NewReader("%PDF"), iotest.ErrReader(io.ErrUnexpectedEOF))
		_, _, err := ReadContent(r, 10)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("read error", func(t *testing.T) {
		_, _, err := ReadContent(iotest.ErrReader(errors.New("boom")), 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, KindPolicy, KindOf(Policy(RuleSize, "x")))
	assert.Equal(t, KindProtocol, KindOf(Protocol("bad %s", "body")))
	assert.Equal(t, KindInternal, KindOf(Internal()))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))

	assert.Equal(t, "policy", KindPolicy.String())
	assert.Equal(t, "protocol", KindProtocol.String())
	assert.Equal(t, "internal", KindInternal.String())
	assert.Equal(t, "unknown", Kind(0).String())

	assert.Equal(t, "bad body", Protocol("bad %s", "body").Error())
	assert.False(t, IsPolicyViolation(Protocol("x")))
}

func TestReject(t *testing.T) {
	res := Reject(Policy(RuleSize, "File is empty"))
	assert.Equal(t, Result{Valid: false, Error: "File is empty"}, res)

	res = Reject(errors.New("pq: connection refused at 10.0.0.3"))
	assert.Equal(t, InternalMessage, res.Error)
}
