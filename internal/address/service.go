package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	d "github.com/fjod/go_storefront/internal/domain"
	r "github.com/fjod/go_storefront/internal/repository"
)

var (
	ErrInvalidAddress  = errors.New("invalid address")
	ErrAddressNotFound = r.ErrAddressNotFound
)

type Repository interface {
	ListAddresses(ctx context.Context, userID string) ([]*d.Address, error)
	GetAddress(ctx context.Context, userID, addressID string) (*d.Address, error)
	CreateAddress(ctx context.Context, userID string, in d.AddressInput) (*d.Address, error)
	UpdateAddress(ctx context.Context, userID, addressID string, patch d.AddressPatch) (*d.Address, error)
	DeleteAddress(ctx context.Context, userID, addressID string) error
}

// Service manages a user's saved addresses. Default-address bookkeeping is
// done by the repository inside one transaction.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID string) ([]*d.Address, error) {
	return s.repo.ListAddresses(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, addressID string) (*d.Address, error) {
	return s.repo.GetAddress(ctx, userID, addressID)
}

func (s *Service) Create(ctx context.Context, userID string, in d.AddressInput) (*d.Address, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.AddressLine1 = strings.TrimSpace(in.AddressLine1)
	in.City = strings.TrimSpace(in.City)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))

	if err := requireFields(map[string]string{
		"name":          in.Name,
		"address_line1": in.AddressLine1,
		"city":          in.City,
		"postal_code":   in.PostalCode,
		"country":       in.Country,
	}); err != nil {
		return nil, err
	}
	return s.repo.CreateAddress(ctx, userID, in)
}

// Update rejects patches that blank out a required field.
func (s *Service) Update(ctx context.Context, userID, addressID string, patch d.AddressPatch) (*d.Address, error) {
	fields := map[string]string{}
	for name, v := range map[string]*string{
		"name":          patch.Name,
		"address_line1": patch.AddressLine1,
		"city":          patch.City,
		"postal_code":   patch.PostalCode,
		"country":       patch.Country,
	} {
		if v != nil {
			fields[name] = strings.TrimSpace(*v)
		}
	}
	if err := requireFields(fields); err != nil {
		return nil, err
	}
	return s.repo.UpdateAddress(ctx, userID, addressID, patch)
}

func (s *Service) Delete(ctx context.Context, userID, addressID string) error {
	return s.repo.DeleteAddress(ctx, userID, addressID)
}

func requireFields(fields map[string]string) error {
	var missing []string
	for _, name := range []string{"name", "address_line1", "city", "postal_code", "country"} {
		if v, ok := fields[name]; ok && v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidAddress, strings.Join(missing, ", "))
	}
	return nil
}
