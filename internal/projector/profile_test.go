package projector

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

const (
	aliceProfile = "0x00000000000000000000000000000000000000000000000000000000000aa001"
	bobProfile   = "0x00000000000000000000000000000000000000000000000000000000000bb001"
	carolProfile = "0x00000000000000000000000000000000000000000000000000000000000cc001"
	daveProfile  = "0x00000000000000000000000000000000000000000000000000000000000dd001"
)

func newResolver(objects map[string]*client.Object) Resolver {
	return func(ctx context.Context, objectID string) (*client.Object, error) {
		object, ok := objects[objectID]
		if !ok {
			return nil, xerrors.Errorf("object %v unavailable", objectID)
		}
		return object, nil
	}
}

func TestProjectProfiles(t *testing.T) {
	require := testutil.Require(t)

	p, scope := newTestProjector()
	b := &eventBuilder{}
	registrations := p.ProjectRegistrations([]*event.RawEvent{
		b.registered(alice, aliceProfile),
		b.registered(bob, bobProfile),
		b.registered(carol, carolProfile),
		b.registered(dave, daveProfile),
		b.registered(bob, bobProfile),
		b.malformed(event.KindUserRegistered),
	})
	require.Len(registrations, 4)

	resolve := newResolver(map[string]*client.Object{
		bobProfile:   newObject(bobProfile, `{"name": "Bob", "age": "31", "bio": "hi", "location": "Lisbon", "profile_images": [], "interests": ["Surf"], "is_active": true}`),
		carolProfile: newObject(carolProfile, `{"name": "Carol", "age": 29, "profile_images": ["https://img/carol.png"], "is_active": false}`),
	})

	profiles, err := p.ProjectProfiles(context.Background(), alice, registrations, resolve, ProfileOptions{Parallelism: 2, DemoFallback: true})
	require.NoError(err)
	require.Equal([]*Profile{
		{
			OwnerAddress: bob,
			ObjectID:     bobProfile,
			Name:         "Bob",
			Age:          31,
			Bio:          "hi",
			Location:     "Lisbon",
			Images:       []string{"https://api.dicebear.com/7.x/avataaars/svg?seed=" + bob},
			Interests:    []string{"Surf"},
			IsActive:     true,
		},
	}, profiles)

	require.Equal(int64(1), scope.Snapshot().Counters()["projector.profile_unresolved+"].Value())

	again, err := p.ProjectProfiles(context.Background(), alice, registrations, resolve, ProfileOptions{Parallelism: 2, DemoFallback: true})
	require.NoError(err)
	require.Empty(cmp.Diff(profiles, again))
}

func TestProjectProfiles_OrderFollowsRegistrations(t *testing.T) {
	require := testutil.Require(t)

	p, _ := newTestProjector()
	registrations := []*Registration{
		{User: dave, ProfileID: daveProfile},
		{User: bob, ProfileID: bobProfile},
		{User: carol, ProfileID: carolProfile},
	}
	resolve := newResolver(map[string]*client.Object{
		bobProfile:   newObject(bobProfile, `{"name": "Bob", "is_active": true}`),
		carolProfile: newObject(carolProfile, `{"name": "Carol", "is_active": true}`),
		daveProfile:  newObject(daveProfile, `{"name": "Dave", "is_active": true}`),
	})

	profiles, err := p.ProjectProfiles(context.Background(), alice, registrations, resolve, ProfileOptions{Parallelism: 3})
	require.NoError(err)
	require.Len(profiles, 3)
	require.Equal("Dave", profiles[0].Name)
	require.Equal("Bob", profiles[1].Name)
	require.Equal("Carol", profiles[2].Name)
}

func TestProjectProfiles_DemoFallback(t *testing.T) {
	require := testutil.Require(t)

	p, _ := newTestProjector()
	registrations := []*Registration{{User: alice, ProfileID: aliceProfile}}
	resolve := newResolver(nil)

	profiles, err := p.ProjectProfiles(context.Background(), alice, registrations, resolve, ProfileOptions{DemoFallback: true})
	require.NoError(err)
	require.Len(profiles, 2)
	for _, profile := range profiles {
		require.True(profile.IsDemo)
	}
	require.Equal("Demo Alice", profiles[0].Name)
	require.Equal("Demo Bob", profiles[1].Name)

	profiles, err = p.ProjectProfiles(context.Background(), alice, registrations, resolve, ProfileOptions{})
	require.NoError(err)
	require.Empty(profiles)
}

func TestProjectProfiles_Cancelled(t *testing.T) {
	require := testutil.Require(t)

	p, _ := newTestProjector()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolve := func(ctx context.Context, objectID string) (*client.Object, error) {
		return nil, ctx.Err()
	}
	_, err := p.ProjectProfiles(ctx, alice, []*Registration{{User: bob, ProfileID: bobProfile}}, resolve, ProfileOptions{Parallelism: 1})
	require.Error(err)
}

func TestDecodeProfile(t *testing.T) {
	require := testutil.Require(t)

	_, err := DecodeProfile(bob, &client.Object{ID: bobProfile})
	require.True(xerrors.Is(err, ErrProfileNotFound))

	_, err = DecodeProfile(bob, newObject(bobProfile, `{"age": "old"}`))
	require.Error(err)

	profile, err := DecodeProfile("", &client.Object{
		ID:     bobProfile,
		Owner:  bob,
		Exists: true,
		Fields: newObject(bobProfile, `{"name": [66, 111, 98], "is_active": true}`).Fields,
	})
	require.NoError(err)
	require.Equal(bob, profile.OwnerAddress)
	require.Equal("Bob", profile.Name)
	require.Equal([]string{PlaceholderImage(bob)}, profile.Images)
	require.Equal([]string{}, profile.Interests)
}

func TestUnswipedProfiles(t *testing.T) {
	require := testutil.Require(t)

	profiles := []*Profile{{OwnerAddress: bob}, {OwnerAddress: carol}, {OwnerAddress: dave}}
	swipes := []*SwipeRecord{
		{Swiper: alice, Swiped: carol, IsLike: false},
		{Swiper: bob, Swiped: dave, IsLike: true},
	}

	unswiped := UnswipedProfiles(alice, profiles, swipes)
	require.Len(unswiped, 2)
	require.Equal(bob, unswiped[0].OwnerAddress)
	require.Equal(dave, unswiped[1].OwnerAddress)
}
