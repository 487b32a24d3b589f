package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/pkg/enums"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

const (
	KeyCutoffTime    = "hora_limite_entrega_dia"
	KeyHolidays      = "feriados"
	KeyOperatingDays = "dias_funcionamento"

	cacheScope = "settings"
)

var defaultOperatingDays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// Provider is the typed view over system_settings the engine depends on.
// Accessors never fail: missing or malformed values fall back to defaults.
type Provider interface {
	CutoffTime(ctx context.Context) scheduling.TimeOfDay
	Holidays(ctx context.Context) scheduling.HolidaySet
	OperatingDays(ctx context.Context) []time.Weekday
}

// Cache is the subset of the redis client used for read-through caching.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(scope, id string) string
}

// ServiceParams configure the settings service.
type ServiceParams struct {
	Repo     Repository
	Logger   *logger.Logger
	Cache    Cache
	CacheTTL time.Duration
	// IsCacheMiss tells a miss apart from a cache failure. Defaults to "any error".
	IsCacheMiss func(error) bool
}

// Service implements Provider on top of the settings repository.
type Service struct {
	repo     Repository
	logg     *logger.Logger
	cache    Cache
	cacheTTL time.Duration
	isMiss   func(error) bool
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	isMiss := params.IsCacheMiss
	if isMiss == nil {
		isMiss = func(error) bool { return true }
	}
	return &Service{
		repo:     params.Repo,
		logg:     params.Logger,
		cache:    params.Cache,
		cacheTTL: params.CacheTTL,
		isMiss:   isMiss,
	}, nil
}

func (s *Service) CutoffTime(ctx context.Context) scheduling.TimeOfDay {
	var raw string
	if !s.load(ctx, KeyCutoffTime, &raw) {
		return scheduling.DefaultCutoff
	}
	cutoff, err := scheduling.ParseTimeOfDay(raw)
	if err != nil {
		s.warn(ctx, KeyCutoffTime, err)
		return scheduling.DefaultCutoff
	}
	return cutoff
}

func (s *Service) Holidays(ctx context.Context) scheduling.HolidaySet {
	var dates []string
	if !s.load(ctx, KeyHolidays, &dates) {
		return scheduling.NewHolidaySet()
	}
	return scheduling.NewHolidaySet(dates...)
}

func (s *Service) OperatingDays(ctx context.Context) []time.Weekday {
	var names []string
	if !s.load(ctx, KeyOperatingDays, &names) {
		return append([]time.Weekday(nil), defaultOperatingDays...)
	}
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		if d, ok := enums.Weekday(name).Time(); ok {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return append([]time.Weekday(nil), defaultOperatingDays...)
	}
	return days
}

// load fetches key and decodes it into out. It reports false when the value
// is absent or cannot be decoded.
func (s *Service) load(ctx context.Context, key string, out any) bool {
	raw, ok := s.raw(ctx, key)
	if !ok {
		return false
	}
	if err := decodeValue(raw, out); err != nil {
		s.warn(ctx, key, err)
		return false
	}
	return true
}

func (s *Service) raw(ctx context.Context, key string) ([]byte, bool) {
	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.CacheKey(cacheScope, key)
		cached, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			return []byte(cached), len(cached) > 0
		case !s.isMiss(err):
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"setting": key, "error": err.Error()}), "settings cache read failed")
		}
	}

	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"setting": key, "error": err.Error()}), "settings lookup failed; using default")
		return nil, false
	}
	var value []byte
	if setting != nil {
		value = bytes.TrimSpace(setting.Value)
		if bytes.Equal(value, []byte("null")) {
			value = nil
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, string(value), s.cacheTTL); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"setting": key, "error": err.Error()}), "settings cache write failed")
		}
	}
	return value, len(value) > 0
}

func (s *Service) warn(ctx context.Context, key string, err error) {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"setting": key, "error": err.Error()}), "malformed setting; using default")
}

// decodeValue accepts a JSON value of the target shape or a JSON string that
// itself holds it ("\"[...]\""), which is how the admin panel sometimes saves
// values. A bare string target takes the string as is.
func decodeValue(raw []byte, out any) error {
	if target, ok := out.(*string); ok {
		if err := json.Unmarshal(raw, target); err != nil {
			return err
		}
		if strings.HasPrefix(*target, `"`) {
			return json.Unmarshal([]byte(*target), target)
		}
		return nil
	}
	err := json.Unmarshal(raw, out)
	if err == nil {
		return nil
	}
	var inner string
	if json.Unmarshal(raw, &inner) != nil {
		return err
	}
	return json.Unmarshal([]byte(inner), out)
}
