// Package models defines the records shared by the foreground client, the
// agent and the local store.
package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PendingSubmission is one queued story waiting for upload. TempID is
// assigned by the store; the record is never updated, only deleted after a
// confirmed upload.
type PendingSubmission struct {
	TempID      int64     `json:"tempId"`
	Description string    `json:"description"`
	PhotoData   string    `json:"photoData"` // data:<mime>;base64,<payload>
	PhotoType   string    `json:"photoType"`
	PhotoName   string    `json:"photoName"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Photo is a decoded image ready for multipart upload.
type Photo struct {
	Name string
	Type string
	Data []byte
}

// NewStory is the input of a story submission, online or queued.
type NewStory struct {
	Description string
	Photo       Photo
	Lat         *float64
	Lon         *float64
}

// ToPending converts a story into its durable queue form.
func (s NewStory) ToPending(now time.Time) *PendingSubmission {
	return &PendingSubmission{
		Description: s.Description,
		PhotoData:   EncodeDataURL(s.Photo.Type, s.Photo.Data),
		PhotoType:   s.Photo.Type,
		PhotoName:   s.Photo.Name,
		Lat:         s.Lat,
		Lon:         s.Lon,
		Timestamp:   now.UTC(),
	}
}

// Story rebuilds the upload input from a queued record.
func (p *PendingSubmission) Story() (NewStory, error) {
	mime, data, err := DecodeDataURL(p.PhotoData)
	if err != nil {
		return NewStory{}, fmt.Errorf("pending %d: %w", p.TempID, err)
	}
	photoType := p.PhotoType
	if photoType == "" {
		photoType = mime
	}
	name := p.PhotoName
	if name == "" {
		name = "photo.jpg"
	}
	return NewStory{
		Description: p.Description,
		Photo:       Photo{Name: name, Type: photoType, Data: data},
		Lat:         p.Lat,
		Lon:         p.Lon,
	}, nil
}

var ErrBadDataURL = errors.New("malformed data url")

// EncodeDataURL renders data as a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses a base64 data URL and returns its media type and bytes.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrBadDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrBadDataURL
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrBadDataURL)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	return mime, data, nil
}
