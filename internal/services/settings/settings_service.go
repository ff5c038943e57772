// Package settings exposes user tunables as typed accessors over the
// key/value store.
package settings

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// Setting keys. Values are stored as strings and parsed by the typed
// accessors; missing or unparseable values fall back to defaults.
const (
	KeyScheduleEnabled    = "schedule_enabled"
	KeyFrequency          = "frequency"
	KeyTimeOfDay          = "time_of_day"
	KeyTimezone           = "timezone"
	KeyDailyCap           = "daily_cap"
	KeyMonthlyBudget      = "monthly_budget"
	KeyModel              = "model"
	KeyImageModel         = "image_model"
	KeyWordCount          = "word_count"
	KeyHumanizeLevel      = "humanize_level"
	KeySEOEnabled         = "seo_enabled"
	KeyImageEnabled       = "image_enabled"
	KeyPublishImmediately = "publish_immediately"
	KeyAuthor             = "author"
	KeySettingsChangedAt  = "settings_changed_at"
)

// scheduleKeys are the settings whose change restarts the scheduler
// cooldown window.
var scheduleKeys = map[string]bool{
	KeyScheduleEnabled: true,
	KeyFrequency:       true,
	KeyTimeOfDay:       true,
	KeyTimezone:        true,
	KeyDailyCap:        true,
	KeyMonthlyBudget:   true,
}

type service struct {
	kv     interfaces.KeyValueStorage
	config *common.Config
	logger arbor.ILogger
}

// NewService creates the settings service. Configuration supplies defaults
// for values the user has not set yet.
func NewService(kv interfaces.KeyValueStorage, config *common.Config, logger arbor.ILogger) interfaces.SettingsService {
	return &service{kv: kv, config: config, logger: logger}
}

func (s *service) get(key, fallback string) string {
	value, err := s.kv.Get(context.Background(), key)
	if err != nil || value == "" {
		return fallback
	}
	return value
}

func (s *service) getBool(key string, fallback bool) bool {
	value := s.get(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *service) getInt(key string, fallback int) int {
	value := s.get(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *service) getFloat(key string, fallback float64) float64 {
	value := s.get(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *service) ScheduleEnabled() bool {
	return s.getBool(KeyScheduleEnabled, false)
}

func (s *service) Frequency() models.Frequency {
	freq := models.Frequency(strings.ToLower(s.get(KeyFrequency, string(models.FrequencyDaily))))
	if !freq.Valid() {
		return models.FrequencyDaily
	}
	return freq
}

func (s *service) TimeOfDay() string {
	return s.get(KeyTimeOfDay, "09:00")
}

func (s *service) Timezone() *time.Location {
	name := s.get(KeyTimezone, "")
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		s.logger.Warn().Str("timezone", name).Msg("Unknown timezone setting, using local time")
		return time.Local
	}
	return loc
}

func (s *service) DailyCap() int {
	return s.getInt(KeyDailyCap, 1)
}

func (s *service) MonthlyBudget() float64 {
	return s.getFloat(KeyMonthlyBudget, 0)
}

func (s *service) Model() string {
	return s.get(KeyModel, s.config.AI.Model)
}

func (s *service) ImageModel() string {
	return s.get(KeyImageModel, s.config.AI.ImageModel)
}

func (s *service) WordCount() int {
	return s.getInt(KeyWordCount, 1200)
}

func (s *service) HumanizeLevel() int {
	return s.getInt(KeyHumanizeLevel, 5)
}

func (s *service) SEOEnabled() bool {
	return s.getBool(KeySEOEnabled, true)
}

func (s *service) ImageEnabled() bool {
	return s.getBool(KeyImageEnabled, false)
}

func (s *service) PublishImmediately() bool {
	return s.getBool(KeyPublishImmediately, false)
}

func (s *service) Author() string {
	return s.get(KeyAuthor, "")
}

func (s *service) SettingsChangedAt() time.Time {
	value := s.get(KeySettingsChangedAt, "")
	if value == "" {
		return time.Time{}
	}
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return at
}

func (s *service) Get(key string) (string, error) {
	return s.kv.Get(context.Background(), key)
}

// Set stores a value. Changing a schedule-affecting key also records the
// change timestamp that drives the scheduler cooldown gate.
func (s *service) Set(key string, value string) error {
	ctx := context.Background()
	if err := s.kv.Set(ctx, key, value); err != nil {
		return err
	}

	if scheduleKeys[key] {
		if err := s.kv.Set(ctx, KeySettingsChangedAt, time.Now().Format(time.RFC3339)); err != nil {
			return err
		}
		s.logger.Debug().Str("key", key).Msg("Schedule-affecting setting changed, cooldown restarted")
	}
	return nil
}

func (s *service) All() (map[string]string, error) {
	return s.kv.GetAll(context.Background())
}
