package override

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"zone_controller/internal/models"
)

// MatchRule returns the mode of the first well-formed rule matching the
// weekday (0 = Monday) and hour of local. Malformed rules are skipped.
func MatchRule(rules []models.ScheduleRule, local time.Time) (models.Mode, bool) {
	weekday := mondayFirst(local.Weekday())
	for _, rule := range rules {
		mode, err := validateRule(rule)
		if err != nil {
			continue
		}
		if rule.Weekday == weekday && rule.Hour == local.Hour() {
			return mode, true
		}
	}
	return "", false
}

// ValidateRules returns one error per malformed rule, for load-time warnings.
func ValidateRules(rules []models.ScheduleRule) []error {
	var errs []error
	for i, rule := range rules {
		if _, err := validateRule(rule); err != nil {
			errs = append(errs, fmt.Errorf("rule %d: %w", i, err))
		}
	}
	return errs
}

func validateRule(rule models.ScheduleRule) (models.Mode, error) {
	if rule.Weekday < 0 || rule.Weekday > 6 {
		return "", fmt.Errorf("weekday %d out of range [0,6]", rule.Weekday)
	}
	if rule.Hour < 0 || rule.Hour > 23 {
		return "", fmt.Errorf("hour %d out of range [0,23]", rule.Hour)
	}
	return models.ParseMode(rule.Mode)
}

func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// StaticSchedule is a fixed rule set.
type StaticSchedule []models.ScheduleRule

func (s StaticSchedule) RulesFor(time.Time) ([]models.ScheduleRule, error) {
	return append([]models.ScheduleRule(nil), s...), nil
}

// FileSchedule reads rules from a YAML file on every call so edits take
// effect without a restart. A missing file means no rules.
//
//	rules:
//	  - {weekday: 0, hour: 7, mode: HEAT_ON}
type FileSchedule struct {
	path string
}

func NewFileSchedule(path string) *FileSchedule {
	return &FileSchedule{path: path}
}

func (f *FileSchedule) RulesFor(time.Time) ([]models.ScheduleRule, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schedule %q: %w", f.path, err)
	}
	return ParseSchedule(data)
}

// ParseSchedule decodes a YAML rule document. Entries that do not decode
// into a rule are dropped individually; the rest of the file still applies.
func ParseSchedule(data []byte) ([]models.ScheduleRule, error) {
	var doc struct {
		Rules []yaml.Node `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	rules := make([]models.ScheduleRule, 0, len(doc.Rules))
	for i := range doc.Rules {
		var rule models.ScheduleRule
		if err := doc.Rules[i].Decode(&rule); err != nil {
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
