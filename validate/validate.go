// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package validate

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"
)

// DateLayout is the calendar date format used for every stored and
// reported prediction date.
const DateLayout = "2006-01-02"

// Rule identifiers reported in a Failure.
const (
	RuleDateRequired      = "date_required"
	RuleDateFormat        = "date_format"
	RuleDateInvalid       = "date_invalid"
	RuleDateBeforeMin     = "date_before_min"
	RuleDateAfterMax      = "date_after_max"
	RuleMetadataTooLong   = "metadata_too_long"
	RuleMetadataSQL       = "metadata_sql"
	RuleMetadataHTML      = "metadata_html"
	RuleMetadataEncoding  = "metadata_encoding"
	RuleChallengeRequired = "challenge_required"
	RuleChallengeFailed   = "challenge_failed"
)

// Field names as they appear in request bodies.
const (
	FieldPredictedDate = "predicted_date"
	FieldMetadata      = "metadata"
	FieldChallenge     = "metadata_token"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Rules is the single source of truth for submission validation. It is served
// as-is to callers so client-side pre-checks cannot drift.
type Rules struct {
	DatePattern    string `json:"date_pattern"`
	MinDate        string `json:"min_date"`
	MaxDate        string `json:"max_date"`
	MetadataMaxLen int    `json:"metadata_max_len"`

	// ChallengeRequired is filled in per request from the bot check state.
	ChallengeRequired bool `json:"challenge_required"`
}

// Input is the untrusted part of a submission.
type Input struct {
	PredictedDate  string
	Metadata       string
	ChallengeToken string
}

// Failure names the rule and field that rejected the input.
type Failure struct {
	Rule    string `json:"rule"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result of validating one submission. Date is set only when OK.
type Result struct {
	OK       bool
	Failure  *Failure
	Date     time.Time
	Metadata string // sanitized
}

type Validator struct {
	rules   Rules
	minDate time.Time
	maxDate time.Time
}

// New parses the date bounds once; bad bounds are a configuration error.
func New(minDate, maxDate string, metadataMaxLen int) (*Validator, error) {
	lo, err := time.Parse(DateLayout, minDate)
	if err != nil {
		return nil, fmt.Errorf("invalid min date %q: %w", minDate, err)
	}
	hi, err := time.Parse(DateLayout, maxDate)
	if err != nil {
		return nil, fmt.Errorf("invalid max date %q: %w", maxDate, err)
	}
	if hi.Before(lo) {
		return nil, fmt.Errorf("max date %s is before min date %s", maxDate, minDate)
	}
	if metadataMaxLen <= 0 {
		return nil, fmt.Errorf("metadata max length must be positive")
	}
	return &Validator{
		rules: Rules{
			DatePattern:    datePattern.String(),
			MinDate:        minDate,
			MaxDate:        maxDate,
			MetadataMaxLen: metadataMaxLen,
		},
		minDate: lo,
		maxDate: hi,
	}, nil
}

func (v *Validator) Rules() Rules { return v.rules }

// ParseDate checks format, calendar validity and range.
func (v *Validator) ParseDate(s string) (time.Time, *Failure) {
	if s == "" {
		return time.Time{}, fail(RuleDateRequired, FieldPredictedDate, "predicted_date is required")
	}
	if !datePattern.MatchString(s) {
		return time.Time{}, fail(RuleDateFormat, FieldPredictedDate, "predicted_date must be a date in YYYY-MM-DD format")
	}
	// time.Parse rejects out-of-range days, including Feb 29 outside leap years.
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fail(RuleDateInvalid, FieldPredictedDate, "predicted_date is not a real calendar date")
	}
	if d.Before(v.minDate) {
		return time.Time{}, fail(RuleDateBeforeMin, FieldPredictedDate,
			"Prediction is before the minimum date ("+v.rules.MinDate+")")
	}
	if d.After(v.maxDate) {
		return time.Time{}, fail(RuleDateAfterMax, FieldPredictedDate,
			"Prediction is after the maximum date ("+v.rules.MaxDate+")")
	}
	return d, nil
}

// CheckMetadata bounds and scans free text. Detectors run on the raw value.
func (v *Validator) CheckMetadata(s string) *Failure {
	if !utf8.ValidString(s) {
		return fail(RuleMetadataEncoding, FieldMetadata, "metadata must be valid UTF-8")
	}
	if utf8.RuneCountInString(s) > v.rules.MetadataMaxLen {
		return fail(RuleMetadataTooLong, FieldMetadata,
			fmt.Sprintf("metadata must be at most %d characters", v.rules.MetadataMaxLen))
	}
	if LooksLikeSQL(s) {
		return fail(RuleMetadataSQL, FieldMetadata, "metadata contains disallowed content")
	}
	if LooksLikeHTML(s) {
		return fail(RuleMetadataHTML, FieldMetadata, "metadata contains disallowed content")
	}
	return nil
}

// Validate runs every rule in order and stops at the first failure.
// challengeRequired is false only while bot verification runs fail-open; the
// date checks run either way.
func (v *Validator) Validate(in Input, challengeRequired bool) Result {
	d, f := v.ParseDate(in.PredictedDate)
	if f != nil {
		return Result{Failure: f}
	}
	if f := v.CheckMetadata(in.Metadata); f != nil {
		return Result{Failure: f}
	}
	if challengeRequired && in.ChallengeToken == "" {
		return Result{Failure: fail(RuleChallengeRequired, FieldChallenge, "Please complete the verification challenge")}
	}
	return Result{OK: true, Date: d, Metadata: Sanitize(in.Metadata)}
}

// Truncate cuts s to at most n runes. Used for headers we don't control.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func fail(rule, field, msg string) *Failure {
	return &Failure{Rule: rule, Field: field, Message: msg}
}
