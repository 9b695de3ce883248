package handlers

import (
	"time"

	"github.com/pribylovaa/go-tenant-auth/internal/models"
	"github.com/pribylovaa/go-tenant-auth/internal/service"
)

type addressDTO struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Line    string `json:"line"`
}

type registerRequest struct {
	Kind         string      `json:"kind"`
	Email        string      `json:"email"`
	Password     string      `json:"password"`
	Name         string      `json:"name"`
	BusinessType string      `json:"business_type,omitempty"`
	Region       string      `json:"region,omitempty"`
	Address      *addressDTO `json:"address,omitempty"`
}

func (in registerRequest) toInput() service.RegisterInput {
	kind := models.OwnerKind(in.Kind)
	if kind == "" {
		kind = models.OwnerUser
	}

	out := service.RegisterInput{
		Kind:         kind,
		Email:        in.Email,
		Password:     in.Password,
		Name:         in.Name,
		BusinessType: models.BusinessType(in.BusinessType),
		Region:       models.Region(in.Region),
	}
	if in.Address != nil {
		out.Address = &service.AddressInput{
			Country: in.Address.Country,
			City:    in.Address.City,
			Line:    in.Address.Line,
		}
	}

	return out
}

type emailRequest struct {
	Email string `json:"email"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetCompleteRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type changeEmailRequest struct {
	CurrentPassword string `json:"current_password"`
	NewEmail        string `json:"new_email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

type ownerResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Email        string    `json:"email"`
	Verified     bool      `json:"verified"`
	Name         string    `json:"name,omitempty"`
	BusinessType string    `json:"business_type,omitempty"`
	Region       string    `json:"region,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func ownerFromModel(o *models.Owner) ownerResponse {
	return ownerResponse{
		ID:           o.ID.String(),
		Kind:         string(o.Kind),
		Email:        o.Email,
		Verified:     o.Verified,
		Name:         o.Name,
		BusinessType: string(o.BusinessType),
		Region:       string(o.Region),
		CreatedAt:    o.CreatedAt,
	}
}

type profileResponse struct {
	ownerResponse
	Addresses []addressDTO `json:"addresses"`
}

func profileFromModel(p *service.Profile) profileResponse {
	out := profileResponse{
		ownerResponse: ownerFromModel(p.Owner),
		Addresses:     make([]addressDTO, 0, len(p.Addresses)),
	}
	for _, a := range p.Addresses {
		out.Addresses = append(out.Addresses, addressDTO{Country: a.Country, City: a.City, Line: a.Line})
	}

	return out
}

type sessionResponse struct {
	Owner           ownerResponse `json:"owner"`
	AccessExpiresAt time.Time     `json:"access_expires_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}
