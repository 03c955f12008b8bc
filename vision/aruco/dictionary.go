// Package aruco turns fiducial marker detections into marker poses and persistent markers.
package aruco

import (
	"github.com/pkg/errors"
)

// Dictionary identifies a predefined marker dictionary, named as in OpenCV.
type Dictionary int

// The OpenCV predefined dictionaries, in OpenCV's numbering.
const (
	Dict4x4_50 Dictionary = iota
	Dict4x4_100
	Dict4x4_250
	Dict4x4_1000
	Dict5x5_50
	Dict5x5_100
	Dict5x5_250
	Dict5x5_1000
	Dict6x6_50
	Dict6x6_100
	Dict6x6_250
	Dict6x6_1000
	Dict7x7_50
	Dict7x7_100
	Dict7x7_250
	Dict7x7_1000
	DictArucoOriginal
	DictAprilTag16h5
	DictAprilTag25h9
	DictAprilTag36h10
	DictAprilTag36h11
)

var dictionaryNames = [...]string{
	"DICT_4X4_50", "DICT_4X4_100", "DICT_4X4_250", "DICT_4X4_1000",
	"DICT_5X5_50", "DICT_5X5_100", "DICT_5X5_250", "DICT_5X5_1000",
	"DICT_6X6_50", "DICT_6X6_100", "DICT_6X6_250", "DICT_6X6_1000",
	"DICT_7X7_50", "DICT_7X7_100", "DICT_7X7_250", "DICT_7X7_1000",
	"DICT_ARUCO_ORIGINAL",
	"DICT_APRILTAG_16h5", "DICT_APRILTAG_25h9", "DICT_APRILTAG_36h10", "DICT_APRILTAG_36h11",
}

var dictionarySizes = [...]int{
	50, 100, 250, 1000,
	50, 100, 250, 1000,
	50, 100, 250, 1000,
	50, 100, 250, 1000,
	1024,
	30, 35, 2320, 587,
}

// ErrUnknownDictionary is returned when parsing an unsupported dictionary name.
var ErrUnknownDictionary = errors.New("unknown marker dictionary")

// ParseDictionary returns the dictionary with the given OpenCV name.
func ParseDictionary(name string) (Dictionary, error) {
	for i, n := range dictionaryNames {
		if n == name {
			return Dictionary(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownDictionary, "%q", name)
}

// Valid reports whether d is one of the known dictionaries.
func (d Dictionary) Valid() bool {
	return d >= 0 && int(d) < len(dictionaryNames)
}

func (d Dictionary) String() string {
	if !d.Valid() {
		return "DICT_UNKNOWN"
	}
	return dictionaryNames[d]
}

// Size returns how many distinct marker ids the dictionary holds.
func (d Dictionary) Size() int {
	if !d.Valid() {
		return 0
	}
	return dictionarySizes[d]
}

// ContainsID reports whether id is a valid marker id in the dictionary.
func (d Dictionary) ContainsID(id int) bool {
	return id >= 0 && id < d.Size()
}

// MarshalText encodes the dictionary as its OpenCV name.
func (d Dictionary) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, errors.Wrapf(ErrUnknownDictionary, "%d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes an OpenCV dictionary name.
func (d *Dictionary) UnmarshalText(text []byte) error {
	parsed, err := ParseDictionary(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
