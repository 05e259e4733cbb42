package photo

import (
	"bytes"
	"errors"
	"net/http"
)

// ErrUnsupportedFormat - файл не похож на поддерживаемое изображение
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Format - распознанный формат изображения
type Format struct {
	ContentType string
	Extension   string
}

var heicBrands = [][]byte{[]byte("heic"), []byte("heix"), []byte("mif1"), []byte("msf1")}

// DetectFormat определяет формат по содержимому, а не по имени файла
func DetectFormat(data []byte) (Format, error) {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return Format{ContentType: "image/jpeg", Extension: ".jpg"}, nil
	case "image/png":
		return Format{ContentType: "image/png", Extension: ".png"}, nil
	case "image/webp":
		return Format{ContentType: "image/webp", Extension: ".webp"}, nil
	}

	// HEIC: ISO BMFF с брендом heic/mif1 в заголовке ftyp
	if len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) {
		for _, brand := range heicBrands {
			if bytes.Equal(data[8:12], brand) {
				return Format{ContentType: "image/heic", Extension: ".heic"}, nil
			}
		}
	}

	return Format{}, ErrUnsupportedFormat
}
