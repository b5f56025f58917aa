package client

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/kleurijkwonen/inspections/wizard"
)

// encodeDraft writes d as the multipart body of POST /api/submissions.
// Unset ratings are sent as empty fields so the server names them missing.
func encodeDraft(typ string, d *wizard.Draft) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	rating := func(n int) string {
		if n == 0 {
			return ""
		}
		return strconv.Itoa(n)
	}
	fields := [][2]string{
		{"type", typ},
		{"streetName", d.Address.StreetName},
		{"apartmentNumber", d.Address.ApartmentNumber},
		{"city", d.Address.City},
		{"structuralDefects", rating(d.StructuralDefects)},
		{"decayMagnitude", rating(d.DecayMagnitude)},
		{"defectIntensity", rating(d.DefectIntensity)},
		{"description", d.Description},
	}
	if d.Latitude != nil && d.Longitude != nil {
		fields = append(fields,
			[2]string{"latitude", formatFloat(*d.Latitude)},
			[2]string{"longitude", formatFloat(*d.Longitude)},
		)
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write %s: %w", f[0], err)
		}
	}

	if d.Photo != nil && len(d.Photo.Data) > 0 {
		if err := writePhoto(w, "photo", *d.Photo); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &body, w.FormDataContentType(), nil
}

func encodePhotos(photos map[string]wizard.Photo) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, p := range photos {
		if err := writePhoto(w, field, p); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &body, w.FormDataContentType(), nil
}

func writePhoto(w *multipart.Writer, field string, p wizard.Photo) error {
	filename := p.Filename
	if filename == "" {
		filename = field
	}
	contentType := p.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(p.Data)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := part.Write(p.Data); err != nil {
		return fmt.Errorf("failed to write %s part: %w", field, err)
	}
	return nil
}
