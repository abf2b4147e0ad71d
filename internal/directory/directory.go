// Package directory owns identity records: creation, listing, partial
// updates and deletion. Everything except the bootstrap path requires an
// admin actor.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"

	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
	"github.com/ctrlhora/ctrlhora-be/internal/auth"
	"github.com/ctrlhora/ctrlhora-be/internal/models"
	"github.com/ctrlhora/ctrlhora-be/internal/models/dto"
	"github.com/ctrlhora/ctrlhora-be/internal/storage"
)

// DefaultPhoneRegion is used for numbers written without a country code.
const DefaultPhoneRegion = "CL"

// Directory manages identities.
type Directory struct {
	store            storage.IdentityStore
	passwords        auth.Passwords
	registrations    *auth.RegistrationTokens
	bootstrapEnabled bool
}

// New constructs a Directory. bootstrapEnabled controls the unauthenticated
// first-run creation path.
func New(store storage.IdentityStore, passwords auth.Passwords, registrations *auth.RegistrationTokens, bootstrapEnabled bool) *Directory {
	return &Directory{
		store:            store,
		passwords:        passwords,
		registrations:    registrations,
		bootstrapEnabled: bootstrapEnabled,
	}
}

// Bootstrap creates an identity without an authenticated caller. It only
// works until the first admin exists; after that admins use Create.
func (d *Directory) Bootstrap(ctx context.Context, req dto.IdentityRequest) (string, error) {
	if !d.bootstrapEnabled {
		return "", apperrors.Wrapf(apperrors.ErrForbidden, "bootstrap creation disabled")
	}
	identities, err := d.store.ListIdentities(ctx)
	if err != nil {
		return "", fmt.Errorf("list identities: %w", err)
	}
	for _, identity := range identities {
		if identity.Role() == models.RoleAdmin {
			return "", apperrors.Wrapf(apperrors.ErrForbidden, "bootstrap closed once an admin exists")
		}
	}
	return d.create(ctx, req)
}

// Create adds an identity on behalf of an admin and returns its
// registration token.
func (d *Directory) Create(ctx context.Context, actor models.Identity, req dto.IdentityRequest) (string, error) {
	if _, err := auth.RequireAdmin(actor); err != nil {
		return "", err
	}
	return d.create(ctx, req)
}

func (d *Directory) create(ctx context.Context, req dto.IdentityRequest) (string, error) {
	identity, err := prepareIdentity(req)
	if err != nil {
		return "", err
	}
	if _, err := d.store.FindByRUT(ctx, identity.RUT); err == nil {
		return "", apperrors.ErrAlreadyExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("lookup identity: %w", err)
	}

	identity.PasswordHash, err = d.passwords.Hash(req.Password)
	if err != nil {
		return "", err
	}
	identity.RegistrationToken, err = d.registrations.Issue(identity.RUT)
	if err != nil {
		return "", err
	}

	if _, err := d.store.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return "", apperrors.ErrAlreadyExists
		}
		return "", fmt.Errorf("create identity: %w", err)
	}
	return identity.RegistrationToken, nil
}

// List returns every identity without credential material.
func (d *Directory) List(ctx context.Context, actor models.Identity) ([]models.PublicIdentity, error) {
	if _, err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	identities, err := d.store.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	out := make([]models.PublicIdentity, 0, len(identities))
	for _, identity := range identities {
		out = append(out, identity.Public())
	}
	return out, nil
}

// Update applies the fields present in patch to the identity at rut.
func (d *Directory) Update(ctx context.Context, actor models.Identity, rut string, patch dto.IdentityPatch) error {
	if _, err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	key, err := models.NormalizeRUT(rut)
	if err != nil {
		return apperrors.ErrNotFound
	}
	if patch.Empty() {
		return apperrors.Invalid("no fields to update")
	}
	changes, err := d.changesFor(patch)
	if err != nil {
		return err
	}
	if err := d.store.UpdateIdentity(ctx, key, changes); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("update identity: %w", err)
	}
	return nil
}

// Delete removes the identity at rut. Its attendance records are kept and
// any record still open is closed at deletion time.
func (d *Directory) Delete(ctx context.Context, actor models.Identity, rut string) error {
	if _, err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	key, err := models.NormalizeRUT(rut)
	if err != nil {
		return apperrors.ErrNotFound
	}
	if err := d.store.DeleteIdentity(ctx, key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

// RehashPlaintextPasswords hashes every stored credential that is not a
// bcrypt hash yet and returns the RUTs it touched.
func (d *Directory) RehashPlaintextPasswords(ctx context.Context) ([]string, error) {
	identities, err := d.store.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	var migrated []string
	for _, identity := range identities {
		if identity.PasswordHash == "" || auth.IsPasswordHash(identity.PasswordHash) {
			continue
		}
		hash, err := d.passwords.Hash(identity.PasswordHash)
		if err != nil {
			return migrated, apperrors.Wrapf(err, "hash password for %s", identity.RUT)
		}
		if err := d.store.UpdateIdentity(ctx, identity.RUT, storage.IdentityChanges{PasswordHash: &hash}); err != nil {
			return migrated, apperrors.Wrapf(err, "store password for %s", identity.RUT)
		}
		migrated = append(migrated, identity.RUT)
	}
	return migrated, nil
}

func prepareIdentity(req dto.IdentityRequest) (models.Identity, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

	err := validation.ValidateStruct(&req,
		validation.Field(&req.RUT, validation.Required, validation.By(rutRule)),
		validation.Field(&req.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.FullName, validation.Length(0, 200)),
		validation.Field(&req.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&req.PhoneNumber, validation.By(phoneRule)),
		validation.Field(&req.Password, validation.Required, validation.Length(1, 72)),
	)
	if err != nil {
		return models.Identity{}, apperrors.Invalid(err.Error())
	}

	rut, _ := models.NormalizeRUT(req.RUT)
	phone, _ := normalizePhone(req.PhoneNumber)
	return models.Identity{
		RUT:         rut,
		Username:    req.Username,
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: phone,
		IsAdmin:     req.IsAdmin,
	}, nil
}

func (d *Directory) changesFor(patch dto.IdentityPatch) (storage.IdentityChanges, error) {
	var changes storage.IdentityChanges

	text := func(name string, field dto.Optional[string], rules ...validation.Rule) (*string, error) {
		if !field.Set {
			return nil, nil
		}
		if !field.Present() {
			return nil, apperrors.Invalid(name + " cannot be null")
		}
		value := strings.TrimSpace(field.Value)
		if err := validation.Validate(value, rules...); err != nil {
			return nil, apperrors.Invalid(name + ": " + err.Error())
		}
		return &value, nil
	}

	var err error
	if changes.Username, err = text("username", patch.Username, validation.Required, validation.Length(1, 100)); err != nil {
		return changes, err
	}
	if changes.FullName, err = text("full_name", patch.FullName, validation.Length(0, 200)); err != nil {
		return changes, err
	}
	if changes.Email, err = text("email", patch.Email, validation.Required, validation.Length(3, 254), is.Email); err != nil {
		return changes, err
	}
	if changes.PhoneNumber, err = text("phone_number", patch.PhoneNumber, validation.By(phoneRule)); err != nil {
		return changes, err
	}
	if changes.PhoneNumber != nil {
		phone, _ := normalizePhone(*changes.PhoneNumber)
		changes.PhoneNumber = &phone
	}

	if patch.Password.Set {
		if patch.Password.Null {
			return changes, apperrors.Invalid("password cannot be null")
		}
		hash, err := d.passwords.Hash(patch.Password.Value)
		if err != nil {
			return changes, err
		}
		changes.PasswordHash = &hash
	}

	if patch.IsAdmin.Set {
		if patch.IsAdmin.Null {
			return changes, apperrors.Invalid("is_admin cannot be null")
		}
		admin := patch.IsAdmin.Value
		changes.IsAdmin = &admin
	}
	return changes, nil
}

func rutRule(value any) error {
	s, _ := value.(string)
	_, err := models.NormalizeRUT(s)
	return err
}

func phoneRule(value any) error {
	s, _ := value.(string)
	_, err := normalizePhone(s)
	return err
}

// normalizePhone formats a phone number as E.164. Empty stays empty.
func normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", errors.New("must be a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
