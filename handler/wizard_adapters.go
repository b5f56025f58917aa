package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/kleurijkwonen/inspections/service"
	"github.com/kleurijkwonen/inspections/wizard"
)

// accountAuthenticator logs wizard sessions in against stored accounts.
type accountAuthenticator struct {
	auth *service.AuthService
}

func (a accountAuthenticator) Authenticate(ctx context.Context, email, password string) (wizard.Role, error) {
	user, err := a.auth.Authenticate(ctx, email, password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return wizard.RoleNone, wizard.ErrInvalidCredentials
	}
	if err != nil {
		return wizard.RoleNone, err
	}
	return wizard.Role(user.Role), nil
}

// accountSubmitter stores a wizard draft as a submission of the session's
// logged-in user.
type accountSubmitter struct {
	store       *service.Store
	submissions *service.SubmissionService
	email       string
}

func (s accountSubmitter) Submit(ctx context.Context, d *wizard.Draft) (*wizard.Receipt, error) {
	user, err := s.store.FindUserByEmail(ctx, s.email)
	if err != nil {
		return nil, err
	}

	in := service.SubmissionInput{
		Type:              user.Role,
		StreetName:        d.Address.StreetName,
		ApartmentNumber:   d.Address.ApartmentNumber,
		City:              d.Address.City,
		StructuralDefects: strconv.Itoa(d.StructuralDefects),
		DecayMagnitude:    strconv.Itoa(d.DecayMagnitude),
		DefectIntensity:   strconv.Itoa(d.DefectIntensity),
		Description:       d.Description,
		SubmittedBy:       user.Email,
		UserID:            user.ID,
	}
	if d.Latitude != nil && d.Longitude != nil {
		in.Latitude = strconv.FormatFloat(*d.Latitude, 'f', -1, 64)
		in.Longitude = strconv.FormatFloat(*d.Longitude, 'f', -1, 64)
	}
	if d.Photo != nil {
		in.Photo = &service.PhotoUpload{
			Filename:    d.Photo.Filename,
			ContentType: d.Photo.ContentType,
			Data:        d.Photo.Data,
		}
	}

	sub, err := s.submissions.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return &wizard.Receipt{ID: sub.ID, Date: sub.Date}, nil
}

// uploadSource hands an uploaded file to Machine.SelectPhoto.
type uploadSource struct {
	photo *service.PhotoUpload
}

func (u uploadSource) Select(ctx context.Context) (wizard.Photo, error) {
	return wizard.Photo{
		Filename:    u.photo.Filename,
		ContentType: u.photo.ContentType,
		Data:        u.photo.Data,
	}, nil
}
