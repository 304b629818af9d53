package pipeline

import (
	exif "github.com/dsoprea/go-exif/v3"
)

// ExifLead is a piece of identifying metadata found in an avatar
// image. Avatars are usually re-encoded by platforms, which strips
// EXIF, so a surviving tag is a strong signal the image was uploaded
// raw and is worth a closer look.
type ExifLead struct {
	// Kind groups the lead: "gps", "camera", "serial", "software",
	// "author", or "timestamp".
	Kind string `json:"kind"`

	// Tag is the EXIF tag name the value came from.
	Tag string `json:"tag"`

	// Value is the formatted tag value.
	Value string `json:"value"`

	// ImageURL is the image the lead was found in.
	ImageURL string `json:"image_url"`

	// Username is the identity the image was harvested for.
	Username string `json:"username"`
}

// exifLeadKinds maps interesting EXIF tags to lead kinds. Tags absent
// here are ignored.
var exifLeadKinds = map[string]string{
	"GPSLatitude":        "gps",
	"GPSLongitude":       "gps",
	"GPSLatitudeRef":     "gps",
	"GPSLongitudeRef":    "gps",
	"Make":               "camera",
	"Model":              "camera",
	"SerialNumber":       "serial",
	"CameraSerialNumber": "serial",
	"BodySerialNumber":   "serial",
	"LensSerialNumber":   "serial",
	"Software":           "software",
	"ProcessingSoftware": "software",
	"Artist":             "author",
	"Author":             "author",
	"Copyright":          "author",
	"XPAuthor":           "author",
	"DateTimeOriginal":   "timestamp",
	"DateTimeDigitized":  "timestamp",
	"HostComputer":       "software",
}

// SniffExif extracts identity-relevant EXIF leads from image bytes.
// Most images have no EXIF at all; that case returns nil quickly and
// is never an error.
func SniffExif(image []byte, imageURL, username string) []ExifLead {
	rawExif, err := exif.SearchAndExtractExif(image)
	if err != nil || rawExif == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}

	var leads []ExifLead
	for _, entry := range entries {
		kind, ok := exifLeadKinds[entry.TagName]
		if !ok || entry.Formatted == "" {
			continue
		}
		leads = append(leads, ExifLead{
			Kind:     kind,
			Tag:      entry.TagName,
			Value:    entry.Formatted,
			ImageURL: imageURL,
			Username: username,
		})
	}

	return leads
}
