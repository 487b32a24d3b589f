package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/pkg/db/dbtest"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

func newTestService(t *testing.T, cache Cache) (*Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(ServiceParams{Repo: repo, Logger: logger.Nop(), Cache: cache, CacheTTL: time.Minute})
	require.NoError(t, err)
	return svc, repo
}

func put(t *testing.T, repo Repository, key, value string) {
	t.Helper()
	require.NoError(t, repo.Upsert(context.Background(), &models.SystemSetting{Key: key, Value: datatypes.JSON(value)}))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop()})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Repo: NewRepository(dbtest.Open(t))})
	require.Error(t, err)
}

func TestDefaultsWhenSettingsAbsent(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	assert.Equal(t, scheduling.DefaultCutoff, svc.CutoffTime(ctx))
	assert.Empty(t, svc.Holidays(ctx).Dates())
	assert.Equal(t, defaultOperatingDays, svc.OperatingDays(ctx))
}

func TestCutoffTime(t *testing.T) {
	cases := map[string]scheduling.TimeOfDay{
		`"14:30"`:          {Hour: 14, Minute: 30},
		`"\"09:15\""`:      {Hour: 9, Minute: 15},
		`"not-a-time"`:     scheduling.DefaultCutoff,
		`42`:               scheduling.DefaultCutoff,
		`null`:             scheduling.DefaultCutoff,
		`{"hora":"10:00"}`: scheduling.DefaultCutoff,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			svc, repo := newTestService(t, nil)
			put(t, repo, KeyCutoffTime, raw)
			assert.Equal(t, want, svc.CutoffTime(context.Background()))
		})
	}
}

func TestHolidaysAcceptsArrayOrEncodedString(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	put(t, repo, KeyHolidays, `["2026-11-02","2026-11-15"]`)
	assert.Equal(t, []string{"2026-11-02", "2026-11-15"}, svc.Holidays(ctx).Dates())

	put(t, repo, KeyHolidays, `"[\"2026-12-25\"]"`)
	assert.Equal(t, []string{"2026-12-25"}, svc.Holidays(ctx).Dates())

	put(t, repo, KeyHolidays, `"garbage"`)
	assert.Empty(t, svc.Holidays(ctx).Dates())
}

func TestOperatingDays(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	put(t, repo, KeyOperatingDays, `["segunda","quarta","Sabado"]`)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Saturday}, svc.OperatingDays(ctx))

	put(t, repo, KeyOperatingDays, `["feriado"]`)
	assert.Equal(t, defaultOperatingDays, svc.OperatingDays(ctx))
}

type memoryCache struct {
	values map[string]string
	gets   int
	sets   int
	getErr error
}

var errMiss = errors.New("miss")

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.gets++
	if c.getErr != nil {
		return "", c.getErr
	}
	v, ok := c.values[key]
	if !ok {
		return "", errMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.sets++
	c.values[key] = value.(string)
	return nil
}

func (c *memoryCache) CacheKey(scope, id string) string { return scope + ":" + id }

func TestCacheServesRepeatedReads(t *testing.T) {
	cache := &memoryCache{values: map[string]string{}}
	svc, repo := newTestService(t, cache)
	ctx := context.Background()
	put(t, repo, KeyCutoffTime, `"15:00"`)

	assert.Equal(t, scheduling.TimeOfDay{Hour: 15}, svc.CutoffTime(ctx))
	put(t, repo, KeyCutoffTime, `"16:00"`)
	assert.Equal(t, scheduling.TimeOfDay{Hour: 15}, svc.CutoffTime(ctx))
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, `"15:00"`, cache.values["settings:"+KeyCutoffTime])
}

func TestCacheStoresAbsenceAsEmpty(t *testing.T) {
	cache := &memoryCache{values: map[string]string{}}
	svc, _ := newTestService(t, cache)
	ctx := context.Background()

	assert.Empty(t, svc.Holidays(ctx).Dates())
	assert.Empty(t, svc.Holidays(ctx).Dates())
	assert.Equal(t, 1, cache.sets)
}
