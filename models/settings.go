package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SettingKind is the storage representation of a competition settings field.
type SettingKind int

const (
	KindText SettingKind = iota
	KindInt
	KindNumeric
	KindTimestamp
	KindTextList
	KindDateList
	KindJSON
)

// SettingsField maps an editor field name to its column.
type SettingsField struct {
	Name   string
	Column string
	Kind   SettingKind
}

var ErrUnknownSettingsField = errors.New("unknown settings field")

const dateLayout = "2006-01-02"

// settingsFields lists every column the settings editor may write.
var settingsFields = []SettingsField{
	{"name", "name", KindText},
	{"city", "city", KindText},
	{"season", "season", KindText},
	{"slug", "slug", KindText},
	{"category", "category", KindText},
	{"demographic", "demographic", KindText},

	{"minimum_prize", "minimum_prize", KindNumeric},
	{"number_of_winners", "number_of_winners", KindInt},
	{"price_per_vote", "price_per_vote", KindNumeric},
	{"eligibility_radius", "eligibility_radius", KindInt},
	{"min_contestants", "min_contestants", KindInt},
	{"max_contestants", "max_contestants", KindInt},

	{"about_tagline", "about_tagline", KindText},
	{"description", "description", KindText},
	{"traits", "traits", KindTextList},
	{"age_range", "age_range", KindText},
	{"requirements", "requirements", KindText},
	{"theme_primary", "theme_primary", KindText},
	{"theme_secondary", "theme_secondary", KindText},

	{"nomination_start", "nomination_start", KindTimestamp},
	{"nomination_end", "nomination_end", KindTimestamp},
	{"voting_start", "voting_start", KindTimestamp},
	{"voting_end", "voting_end", KindTimestamp},
	{"finale_date", "finale_date", KindTimestamp},
	{"double_vote_dates", "double_vote_dates", KindDateList},

	{"events", "events", KindJSON},
	{"sponsors", "sponsors", KindJSON},
	{"rules", "rules", KindJSON},
	{"announcements", "announcements", KindJSON},
	{"winners", "winners", KindJSON},
}

var settingsByName = func() map[string]SettingsField {
	m := make(map[string]SettingsField, len(settingsFields))
	for _, f := range settingsFields {
		m[f.Name] = f
	}
	return m
}()

// LookupSettingsField returns the catalog entry for name.
func LookupSettingsField(name string) (SettingsField, bool) {
	f, ok := settingsByName[name]
	return f, ok
}

// SettingsFieldNames returns the catalog field names in order.
func SettingsFieldNames() []string {
	out := make([]string, len(settingsFields))
	for i, f := range settingsFields {
		out[i] = f.Name
	}
	return out
}

// DecodeSettingValue converts a UI value into its storage representation. A JSON null or an
// empty string decodes to nil, which is stored as NULL. The non-nil results are string, int,
// float64, time.Time, []string and json.RawMessage.
func DecodeSettingValue(name string, raw json.RawMessage) (any, error) {
	field, ok := LookupSettingsField(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSettingsField, name)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return nil, nil
	}

	switch field.Kind {
	case KindText:
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("%s must be a string", name)
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return s, nil

	case KindInt:
		n, err := decodeNumber(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%s must be a whole number", name)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s must be a whole number", name)
		}
		return int(i), nil

	case KindNumeric:
		n, err := decodeNumber(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", name)
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", name)
		}
		return f, nil

	case KindTimestamp:
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("%s must be a date string", name)
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return parseTimestamp(name, s)

	case KindTextList:
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%s must be a list of strings", name)
		}
		return compactList(list), nil

	case KindDateList:
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%s must be a list of dates", name)
		}
		list = compactList(list)
		for _, d := range list {
			if _, err := time.Parse(dateLayout, d); err != nil {
				return nil, fmt.Errorf("%s: %q is not a YYYY-MM-DD date", name, d)
			}
		}
		return list, nil

	case KindJSON:
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("%s must be valid JSON", name)
		}
		return json.RawMessage(append([]byte(nil), trimmed...)), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownSettingsField, name)
}

func decodeNumber(raw []byte) (json.Number, error) {
	// numbers typed into text inputs arrive quoted
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		raw = []byte(strings.TrimSpace(s))
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", err
	}
	return n, nil
}

func parseTimestamp(name, s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: %q is not a valid date", name, s)
}

func compactList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ApplySetting writes a decoded value onto c. value must come from DecodeSettingValue.
func (c *Competition) ApplySetting(name string, value any) error {
	field, ok := LookupSettingsField(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSettingsField, name)
	}

	switch field.Kind {
	case KindText:
		s, _ := value.(string)
		switch name {
		case "name":
			c.Name = s
		case "slug":
			c.Slug = s
		default:
			*c.textField(name) = optional(s)
		}
	case KindInt:
		var p *int
		if v, ok := value.(int); ok {
			p = &v
		}
		switch name {
		case "number_of_winners":
			c.NumberOfWinners = p
		case "eligibility_radius":
			c.EligibilityRadius = p
		case "min_contestants":
			c.MinContestants = p
		case "max_contestants":
			c.MaxContestants = p
		}
	case KindNumeric:
		var p *float64
		if v, ok := value.(float64); ok {
			p = &v
		}
		switch name {
		case "minimum_prize":
			c.MinimumPrize = p
		case "price_per_vote":
			c.PricePerVote = p
		}
	case KindTimestamp:
		var p *time.Time
		if v, ok := value.(time.Time); ok {
			p = &v
		}
		switch name {
		case "nomination_start":
			c.NominationStart = p
		case "nomination_end":
			c.NominationEnd = p
		case "voting_start":
			c.VotingStart = p
		case "voting_end":
			c.VotingEnd = p
		case "finale_date":
			c.FinaleDate = p
		}
	case KindTextList, KindDateList:
		list, _ := value.([]string)
		if name == "traits" {
			c.Traits = list
		} else {
			c.DoubleVoteDates = list
		}
	case KindJSON:
		raw, _ := value.(json.RawMessage)
		switch name {
		case "events":
			c.Events = raw
		case "sponsors":
			c.Sponsors = raw
		case "rules":
			c.Rules = raw
		case "announcements":
			c.Announcements = raw
		case "winners":
			c.Winners = raw
		}
	}
	return nil
}

func (c *Competition) textField(name string) **string {
	switch name {
	case "city":
		return &c.City
	case "season":
		return &c.Season
	case "category":
		return &c.Category
	case "demographic":
		return &c.Demographic
	case "about_tagline":
		return &c.AboutTagline
	case "description":
		return &c.Description
	case "age_range":
		return &c.AgeRange
	case "requirements":
		return &c.Requirements
	case "theme_primary":
		return &c.ThemePrimary
	default:
		return &c.ThemeSecondary
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
