package types

// VerifyMetadataRequest is the JSON body of a metadata-only verification.
// Bucket and Destination are aliases; Bucket wins when both are set.
type VerifyMetadataRequest struct {
	Filename      string `json:"filename" validate:"required"`
	ContentType   string `json:"contentType" validate:"required"`
	Size          *int64 `json:"size" validate:"required,min=0"`
	Bucket        string `json:"bucket" validate:"required_without=Destination"`
	Destination   string `json:"destination"`
	FileSignature []int  `json:"fileSignature" validate:"omitempty,dive,min=0,max=255"`
}

func (r VerifyMetadataRequest) Target() string {
	if r.Bucket != "" {
		return r.Bucket
	}
	return r.Destination
}

// Sample converts the byte-value array into raw bytes. Callers validate the
// range first.
func (r VerifyMetadataRequest) Sample() []byte {
	if len(r.FileSignature) == 0 {
		return nil
	}
	out := make([]byte, len(r.FileSignature))
	for i, v := range r.FileSignature {
		out[i] = byte(v)
	}
	return out
}
