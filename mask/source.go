package mask

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed assets/world-map.png
var defaultMask []byte

// DefaultName names the embedded world map mask.
const DefaultName = "world-map.png"

// Default returns the embedded world map mask, an equirectangular
// silhouette with black land on a transparent background.
func Default() []byte {
	return append([]byte(nil), defaultMask...)
}

// Source is an undecoded mask image.
type Source struct {
	Name string // file name, or "data-uri"
	Data []byte // encoded image bytes
}

// DefaultSource returns the embedded world map.
func DefaultSource() Source {
	return Source{Name: DefaultName, Data: Default()}
}

// FileSource reads the image file at path.
func FileSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("mask: reading %s: %w", path, err)
	}
	return Source{Name: filepath.Base(path), Data: data}, nil
}

// DataURISource unpacks a persisted data URI.
func DataURISource(uri string) (Source, error) {
	data, err := dataURIBytes(uri)
	if err != nil {
		return Source{}, err
	}
	return Source{Name: "data-uri", Data: data}, nil
}

// IsDefault reports whether s holds the embedded mask.
func (s Source) IsDefault() bool {
	return bytes.Equal(s.Data, defaultMask)
}

// DataURI encodes the source for persistence.
func (s Source) DataURI() string {
	return EncodeDataURI(s.Data)
}

// Decode decodes the source image.
func (s Source) Decode() (*Mask, error) {
	m, err := Decode(bytes.NewReader(s.Data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return m, nil
}
