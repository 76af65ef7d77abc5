package database

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Image struct {
	ID               int64
	UserID           int64
	OriginalFilename string
	StoragePath      string // relative to the storage root, unique
	ThumbnailPath    string // relative to the storage root, unique
	MimeType         string
	Size             int64
	Resolution       string // "<width>x<height>"
	Exif             map[string]string
	UploadedAt       time.Time
	Tags             []*Tag
}

// Tag names are shared by all users.
type Tag struct {
	ID   int64
	Name string
}

// ImageMatch pairs a search hit with the tag that produced it.
type ImageMatch struct {
	Image      *Image
	MatchedTag string
}
