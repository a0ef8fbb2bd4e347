package catalog

// Media types recognized by the console. Anything else is stored as
// "other"; the type only drives filtering and icon choice, never
// processing.
var MediaTypes = []string{"video", "audio", "image", "document", "other"}

// assetFields maps filterable/sortable asset columns to their coercion
// type. Queries naming any other field are rejected up front.
var assetFields = map[string]string{
	"id":         "string",
	"title":      "string",
	"media_type": "string",
	"mime_type":  "string",
	"size_bytes": "int",
	"created_at": "string",
	"updated_at": "string",
}

const assetColumns = "id, title, description, media_type, mime_type, size_bytes, storage_path, metadata, tags, created_at, updated_at"

// NormalizeMediaType folds unknown media types to "other".
func NormalizeMediaType(mt string) string {
	for _, known := range MediaTypes {
		if mt == known {
			return mt
		}
	}
	return "other"
}
