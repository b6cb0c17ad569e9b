package domain

// AssetKind enumerates files an operator can attach to a product.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindModel AssetKind = "model"
)

// Upload is an in-memory file headed for a multipart request.
type Upload struct {
	Kind        AssetKind
	Filename    string
	ContentType string
	Data        []byte
}

// Empty reports whether there is nothing to send.
func (u *Upload) Empty() bool {
	return u == nil || len(u.Data) == 0
}
