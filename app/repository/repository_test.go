package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tubtip/tubtip/app/models"
	"github.com/tubtip/tubtip/internal/pkg/database/dbtest"
)

func strPtr(s string) *string { return &s }

func seedAccount(t *testing.T, repos *Repositories, username string) *models.Account {
	t.Helper()
	account := &models.Account{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: strPtr("hash"),
		AuthProvider: models.AuthProviderPassword,
	}
	require.NoError(t, repos.Account.Create(context.Background(), account))
	return account
}

func seedProfile(t *testing.T, repos *Repositories, account *models.Account) *models.Profile {
	t.Helper()
	profile := &models.Profile{AccountID: account.ID, DisplayName: "Display " + account.Username}
	require.NoError(t, repos.Profile.Create(context.Background(), profile))
	return profile
}

func newRepos(t *testing.T) (*Repositories, *gorm.DB) {
	db := dbtest.New(t)
	return NewFactory(db).GetRepositories(), db
}

func TestAccountCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	account := &models.Account{Email: " Alice@Example.com ", Username: "Alice", AuthProvider: models.AuthProviderPassword}
	require.NoError(t, repos.Account.Create(ctx, account))
	assert.Equal(t, "alice@example.com", account.Email)
	assert.Equal(t, "alice", account.Username)

	dupEmail := &models.Account{Email: "ALICE@example.com", Username: "other", AuthProvider: models.AuthProviderPassword}
	assert.ErrorIs(t, repos.Account.Create(ctx, dupEmail), ErrConflict)

	dupUsername := &models.Account{Email: "other@example.com", Username: "alice", AuthProvider: models.AuthProviderPassword}
	assert.ErrorIs(t, repos.Account.Create(ctx, dupUsername), ErrConflict)
}

func TestAccountLookups(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	alice := seedAccount(t, repos, "alice")

	got, err := repos.Account.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = repos.Account.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	missing, err := repos.Account.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	exists, err := repos.Account.UsernameExists(ctx, "ALICE")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAccountDeleteCascades(t *testing.T) {
	repos, db := newRepos(t)
	ctx := context.Background()
	alice := seedAccount(t, repos, "alice")
	profile := seedProfile(t, repos, alice)
	_, err := repos.Tip.CreateIfNotExists(ctx, &models.Tip{ProfileID: profile.ID, Amount: 300, Currency: "gbp", CheckoutSessionID: "cs_1"})
	require.NoError(t, err)

	require.NoError(t, repos.Account.Delete(ctx, alice.ID))

	var profiles, tips int64
	db.Model(&models.Profile{}).Count(&profiles)
	db.Model(&models.Tip{}).Count(&tips)
	assert.Zero(t, profiles)
	assert.Zero(t, tips)
	assert.ErrorIs(t, repos.Account.Delete(ctx, alice.ID), ErrNotFound)
}

func TestProfileOnePerAccount(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	alice := seedAccount(t, repos, "alice")
	seedProfile(t, repos, alice)

	err := repos.Profile.Create(ctx, &models.Profile{AccountID: alice.ID, DisplayName: "Again"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestProfileUpdateWritesOnlyPatchedColumns(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	alice := seedAccount(t, repos, "alice")
	profile := seedProfile(t, repos, alice)
	_, err := repos.Profile.Update(ctx, profile.ID, ProfilePatch{Bio: strPtr("first bio")})
	require.NoError(t, err)

	updated, err := repos.Profile.Update(ctx, profile.ID, ProfilePatch{
		DisplayName:       strPtr("Alice"),
		ProfilePictureKey: strPtr("1/profile_picture/a.png"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice", updated.DisplayName)
	assert.Equal(t, "first bio", updated.Bio)
	require.NotNil(t, updated.ProfilePictureKey)
	assert.Equal(t, "1/profile_picture/a.png", *updated.ProfilePictureKey)
	assert.Nil(t, updated.ProfileBannerKey)
}

func TestProfileByUsernameAndPayout(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()
	alice := seedAccount(t, repos, "alice")
	profile := seedProfile(t, repos, alice)
	_, err := repos.Profile.Update(ctx, profile.ID, ProfilePatch{PayoutAccountID: strPtr("acct_1")})
	require.NoError(t, err)

	byName, err := repos.Profile.GetByUsername(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, profile.ID, byName.ID)

	marked, err := repos.Profile.MarkPayoutConnected(ctx, "acct_1")
	require.NoError(t, err)
	assert.True(t, marked.PayoutConnected)

	again, err := repos.Profile.MarkPayoutConnected(ctx, "acct_1")
	require.NoError(t, err)
	assert.True(t, again.PayoutConnected)

	_, err = repos.Profile.MarkPayoutConnected(ctx, "acct_unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTipCreateIfNotExistsIsIdempotent(t *testing.T) {
	repos, db := newRepos(t)
	ctx := context.Background()
	profile := seedProfile(t, repos, seedAccount(t, repos, "alice"))

	created, err := repos.Tip.CreateIfNotExists(ctx, &models.Tip{ProfileID: profile.ID, Amount: 500, Currency: "gbp", CheckoutSessionID: "cs_123"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repos.Tip.CreateIfNotExists(ctx, &models.Tip{ProfileID: profile.ID, Amount: 500, Currency: "gbp", CheckoutSessionID: "cs_123"})
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	db.Model(&models.Tip{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestTipCreateIfNotExistsConcurrent(t *testing.T) {
	repos, db := newRepos(t)
	ctx := context.Background()
	profile := seedProfile(t, repos, seedAccount(t, repos, "alice"))

	const deliveries = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repos.Tip.CreateIfNotExists(ctx, &models.Tip{ProfileID: profile.ID, Amount: 500, Currency: "gbp", CheckoutSessionID: "cs_race"})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	var count int64
	db.Model(&models.Tip{}).Where("checkout_session_id = ?", "cs_race").Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, created)
}

func TestTipListByProfile(t *testing.T) {
	repos, db := newRepos(t)
	ctx := context.Background()
	profile := seedProfile(t, repos, seedAccount(t, repos, "alice"))
	other := seedProfile(t, repos, seedAccount(t, repos, "bob"))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		tip := models.Tip{
			ProfileID:         profile.ID,
			Amount:            int64(100 * (i + 1)),
			Currency:          "gbp",
			IsPrivate:         i%5 == 0,
			CheckoutSessionID: fmt.Sprintf("cs_%02d", i),
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&tip).Error)
	}
	require.NoError(t, db.Create(&models.Tip{ProfileID: other.ID, Amount: 1, Currency: "gbp", CheckoutSessionID: "cs_other"}).Error)

	page, err := repos.Tip.ListByProfile(ctx, profile.ID, true, 0, 20)
	require.NoError(t, err)
	require.Len(t, page, 20)
	assert.Equal(t, int64(2500), page[0].Amount)
	for i := 1; i < len(page); i++ {
		assert.False(t, page[i].CreatedAt.After(page[i-1].CreatedAt), "tips must be newest first")
	}

	rest, err := repos.Tip.ListByProfile(ctx, profile.ID, true, 20, 20)
	require.NoError(t, err)
	assert.Len(t, rest, 5)

	public, err := repos.Tip.ListByProfile(ctx, profile.ID, false, 0, 50)
	require.NoError(t, err)
	assert.Len(t, public, 20)
	for _, tip := range public {
		assert.False(t, tip.IsPrivate)
	}

	all, err := repos.Tip.CountByProfile(ctx, profile.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(25), all)
	visible, err := repos.Tip.CountByProfile(ctx, profile.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(20), visible)
}

func TestGenreCRUD(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	rock := &models.Genre{Name: "Rock"}
	require.NoError(t, repos.Genre.Create(ctx, rock))
	require.NoError(t, repos.Genre.Create(ctx, &models.Genre{Name: "Blues"}))
	assert.ErrorIs(t, repos.Genre.Create(ctx, &models.Genre{Name: "Rock"}), ErrConflict)

	list, err := repos.Genre.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Blues", list[0].Name)

	rock.Name = "Classic Rock"
	require.NoError(t, repos.Genre.Update(ctx, rock))
	got, err := repos.Genre.GetByID(ctx, rock.ID)
	require.NoError(t, err)
	assert.Equal(t, "Classic Rock", got.Name)

	assert.ErrorIs(t, repos.Genre.Update(ctx, &models.Genre{ID: 999, Name: "Jazz"}), ErrNotFound)
	require.NoError(t, repos.Genre.Delete(ctx, rock.ID))
	assert.ErrorIs(t, repos.Genre.Delete(ctx, rock.ID), ErrNotFound)
}
