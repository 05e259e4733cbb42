package photo

import (
	"errors"
	"fmt"
	"math"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// ErrNoGPS - в фотографии нет EXIF или в EXIF нет координат
var ErrNoGPS = errors.New("photo has no GPS position")

// ExtractGPS достаёт координаты съёмки из EXIF фотографии.
// Используется как запасной источник, когда клиент не прислал широту и долготу.
func ExtractGPS(data []byte) (lat, lon float64, err error) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return 0, 0, ErrNoGPS
		}
		return 0, 0, fmt.Errorf("%w: search exif: %v", ErrNoGPS, err)
	}

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return 0, 0, fmt.Errorf("ifd mapping: %w", err)
	}
	ti := exif.NewTagIndex()

	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return 0, 0, fmt.Errorf("parse exif: %w", err)
	}

	gpsIfd, err := index.RootIfd.ChildWithIfdPath(exifcommon.IfdGpsInfoStandardIfdIdentity)
	if err != nil {
		return 0, 0, ErrNoGPS
	}

	gi, err := gpsIfd.GpsInfo()
	if err != nil {
		return 0, 0, ErrNoGPS
	}

	lat = gi.Latitude.Decimal()
	lon = gi.Longitude.Decimal()
	if math.IsNaN(lat) || math.IsNaN(lon) || (lat == 0 && lon == 0) {
		return 0, 0, ErrNoGPS
	}

	return lat, lon, nil
}
