package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// LoadFace returns a face at size points from the first parseable font in
// paths, falling back to the embedded Go Regular font. The second result
// names the source that was used.
func LoadFace(paths []string, size float64) (font.Face, string, error) {
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		parsed, err := parseFont(path, data)
		if err != nil {
			continue
		}
		face, err := newFace(parsed, size)
		if err != nil {
			continue
		}
		return face, path, nil
	}

	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, "", fmt.Errorf("parse embedded font: %w", err)
	}
	face, err := newFace(parsed, size)
	if err != nil {
		return nil, "", err
	}
	return face, "goregular", nil
}

func parseFont(path string, data []byte) (*opentype.Font, error) {
	if strings.EqualFold(filepath.Ext(path), ".ttc") || strings.EqualFold(filepath.Ext(path), ".otc") {
		collection, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		return collection.Font(0)
	}
	return opentype.Parse(data)
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
