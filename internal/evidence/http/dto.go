package http

// UploadResponse returns the content address of a stored blob.
type UploadResponse struct {
	Ref string `json:"ref"`
}
