package validation

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/kjstillabower/weather-assistant-proxy/internal/models"
)

// ErrMissingParameters is returned when neither city nor a full lat/lon pair is supplied.
var ErrMissingParameters = errors.New("missing parameters")

// ErrInvalidParameters wraps every malformed-but-present parameter error below.
var ErrInvalidParameters = errors.New("invalid parameters")

// ErrLocationTooLong is returned when city length exceeds the maximum.
var ErrLocationTooLong = errors.New("location too long")

// ErrLocationInvalidChars is returned when city contains disallowed characters.
var ErrLocationInvalidChars = errors.New("location contains invalid characters")

// ErrCoordinateInvalid is returned when lat or lon is not a finite number in range.
var ErrCoordinateInvalid = errors.New("coordinate out of range or not numeric")

// ParseLocationQuery reads city, lat and lon from the query string. city wins when
// both forms are present. A lone lat or lon counts as missing. maxLen bounds city
// length in runes (0 disables the check).
func ParseLocationQuery(values url.Values, maxLen int) (models.LocationQuery, error) {
	city := strings.TrimSpace(values.Get("city"))
	if city != "" {
		c, err := ValidateLocation(city, maxLen)
		if err != nil {
			return models.LocationQuery{}, err
		}
		return models.LocationQuery{City: c}, nil
	}

	latRaw := strings.TrimSpace(values.Get("lat"))
	lonRaw := strings.TrimSpace(values.Get("lon"))
	if latRaw == "" || lonRaw == "" {
		return models.LocationQuery{}, ErrMissingParameters
	}
	lat, err := parseCoordinate(latRaw, 90)
	if err != nil {
		return models.LocationQuery{}, err
	}
	lon, err := parseCoordinate(lonRaw, 180)
	if err != nil {
		return models.LocationQuery{}, err
	}
	return models.LocationQuery{Lat: &lat, Lon: &lon}, nil
}

// ValidateLocation enforces the rune length limit and restricts city names to
// letters (Unicode), digits, space, comma, hyphen, period and apostrophe.
func ValidateLocation(city string, maxLen int) (string, error) {
	r := []rune(city)
	if maxLen > 0 && len(r) > maxLen {
		return "", errors.Join(ErrInvalidParameters, ErrLocationTooLong)
	}
	for _, c := range r {
		if !isAllowedLocationRune(c) {
			return "", errors.Join(ErrInvalidParameters, ErrLocationInvalidChars)
		}
	}
	return city, nil
}

func parseCoordinate(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < -limit || v > limit {
		return 0, errors.Join(ErrInvalidParameters, ErrCoordinateInvalid)
	}
	return v, nil
}

func isAllowedLocationRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}
