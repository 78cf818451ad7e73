package projector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/consts"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/syncgroup"
)

type (
	Profile struct {
		OwnerAddress string
		ObjectID     string
		Name         string
		Age          int
		Bio          string
		Location     string
		Images       []string
		Interests    []string
		IsActive     bool
		// IsDemo marks the placeholder profiles shown when no real profile resolves.
		IsDemo bool
	}

	Registration struct {
		User      string
		ProfileID string
		Name      string
		At        time.Time
	}

	// Resolver reads a profile object by id.
	Resolver func(ctx context.Context, objectID string) (*client.Object, error)

	ProfileOptions struct {
		Parallelism  int
		DemoFallback bool
	}
)

// ErrProfileNotFound is returned by DecodeProfile for a missing or deleted object.
var ErrProfileNotFound = xerrors.New("profile not found")

const (
	demoAddressAlice = "0x0000000000000000000000000000000000000000000000000000000000000001"
	demoAddressBob   = "0x0000000000000000000000000000000000000000000000000000000000000002"
)

// ProjectRegistrations decodes the registration stream, keeping the first
// registration of every address in the input order.
func (p *Projector) ProjectRegistrations(events []*event.RawEvent) []*Registration {
	registered := decodeAll[event.UserRegistered](p, events)
	seen := make(map[string]struct{}, len(registered))
	result := make([]*Registration, 0, len(registered))
	for _, d := range registered {
		if _, ok := seen[d.payload.User]; ok {
			continue
		}
		seen[d.payload.User] = struct{}{}

		result = append(result, &Registration{
			User:      d.payload.User,
			ProfileID: d.payload.ProfileID,
			Name:      d.payload.Name,
			At:        event.At(d.event, d.payload.Timestamp),
		})
	}

	return result
}

// ProjectProfiles resolves the profile of every registered address other than the viewer.
// Resolutions run concurrently; the output follows the registration order.
// A failed resolution is logged and skipped, as are inactive profiles and duplicate objects.
// When nothing resolves and the demo fallback is enabled, the demo profiles are returned.
func (p *Projector) ProjectProfiles(ctx context.Context, viewer string, registrations []*Registration, resolve Resolver, opts ProfileOptions) ([]*Profile, error) {
	pending := make([]*Registration, 0, len(registrations))
	seen := make(map[string]struct{}, len(registrations))
	for _, registration := range registrations {
		if registration.User == viewer {
			continue
		}
		if _, ok := seen[registration.User]; ok {
			continue
		}
		seen[registration.User] = struct{}{}
		pending = append(pending, registration)
	}

	resolved, err := syncgroup.Map(ctx, pending, opts.Parallelism, func(ctx context.Context, registration *Registration) (*Profile, error) {
		object, err := resolve(ctx, registration.ProfileID)
		if err == nil {
			var profile *Profile
			if profile, err = DecodeProfile(registration.User, object); err == nil {
				return profile, nil
			}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		p.logger.Warn(
			"failed to resolve profile",
			zap.String("user", registration.User),
			zap.String("profile_id", registration.ProfileID),
			zap.Error(err),
		)
		p.skipped.Counter("profile_unresolved").Inc(1)
		return nil, nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to resolve profiles: %w", err)
	}

	objects := make(map[string]struct{}, len(resolved))
	profiles := make([]*Profile, 0, len(resolved))
	for _, profile := range resolved {
		if profile == nil || !profile.IsActive {
			continue
		}
		if _, ok := objects[profile.ObjectID]; ok {
			continue
		}
		objects[profile.ObjectID] = struct{}{}
		profiles = append(profiles, profile)
	}

	if len(profiles) == 0 && opts.DemoFallback {
		return DemoProfiles(), nil
	}

	return profiles, nil
}

// DecodeProfile reads a UserProfile object owned by owner.
// A profile without images gets the placeholder avatar of its owner.
func DecodeProfile(owner string, object *client.Object) (*Profile, error) {
	if object == nil || !object.Exists {
		return nil, ErrProfileNotFound
	}

	age, err := parseAge(object)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode profile %v: %w", object.ID, err)
	}

	if fieldOwner := object.String("owner"); fieldOwner != "" {
		owner = fieldOwner
	}
	if owner == "" {
		owner = object.Owner
	}

	images := object.Strings("profile_images")
	if len(images) == 0 {
		images = []string{PlaceholderImage(owner)}
	}

	interests := object.Strings("interests")
	if interests == nil {
		interests = []string{}
	}

	return &Profile{
		OwnerAddress: owner,
		ObjectID:     object.ID,
		Name:         object.String("name"),
		Age:          age,
		Bio:          object.String("bio"),
		Location:     object.String("location"),
		Images:       images,
		Interests:    interests,
		IsActive:     object.Bool("is_active"),
	}, nil
}

// UnswipedProfiles drops the profiles the viewer has already swiped on, keeping the input order.
func UnswipedProfiles(viewer string, profiles []*Profile, swipes []*SwipeRecord) []*Profile {
	history := SwipeHistory(viewer, swipes)
	result := make([]*Profile, 0, len(profiles))
	for _, profile := range profiles {
		if !history[profile.OwnerAddress] {
			result = append(result, profile)
		}
	}

	return result
}

func PlaceholderImage(seed string) string {
	return fmt.Sprintf(consts.PlaceholderAvatarURL, seed)
}

// DemoProfiles returns the fixed placeholder profiles.
func DemoProfiles() []*Profile {
	return []*Profile{
		{
			OwnerAddress: demoAddressAlice,
			ObjectID:     demoAddressAlice,
			Name:         "Demo Alice",
			Age:          25,
			Bio:          "This is a demo profile. Register to see real users!",
			Location:     "Demo City",
			Images:       []string{PlaceholderImage("alice")},
			Interests:    []string{"Demo", "Testing"},
			IsActive:     true,
			IsDemo:       true,
		},
		{
			OwnerAddress: demoAddressBob,
			ObjectID:     demoAddressBob,
			Name:         "Demo Bob",
			Age:          28,
			Bio:          "Another demo profile. Real users will appear once they register!",
			Location:     "Demo Town",
			Images:       []string{PlaceholderImage("bob")},
			Interests:    []string{"Demo", "Placeholder"},
			IsActive:     true,
			IsDemo:       true,
		},
	}
}

func parseAge(object *client.Object) (int, error) {
	raw, ok := object.Fields["age"]
	if !ok {
		return 0, nil
	}

	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	age, err := strconv.Atoi(value)
	if err != nil {
		return 0, xerrors.Errorf("invalid age %s: %w", raw, err)
	}

	return age, nil
}
