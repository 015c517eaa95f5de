package facades

import (
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ImageDir is the directory, or key prefix, recipe images are stored under.
const ImageDir = "recipe_images"

// ImageExtension maps a sniffed image content type to its file extension.
// Unknown types yield "".
func ImageExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	}
	return ""
}

// ObjectName builds a unique storage name for an uploaded file:
// recipe_images/<slug of base name>-<8 hex chars><ext>. The extension comes
// from contentType; the client's extension is dropped.
func ObjectName(filename, contentType string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	stem := slug.Make(strings.TrimSuffix(base, path.Ext(base)))
	if stem == "" {
		stem = "image"
	}
	if len(stem) > 80 {
		stem = strings.Trim(stem[:80], "-")
	}
	return ImageDir + "/" + stem + "-" + uuid.NewString()[:8] + ImageExtension(contentType)
}
