// Package timezone validates time zone designators accepted by the Google
// Calendar API and encodes instants into the matching dateTime wire format.
//
// Three designator forms are accepted:
//
//	UTC           the literal string "UTC"
//	Region/City   an IANA style name such as "Asia/Tokyo"
//	GMT±HH:MM     a fixed offset such as "GMT+09:00"
package timezone

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// UTC is the literal designator for Coordinated Universal Time.
	UTC = "UTC"

	gmtPrefix = "GMT"

	utcLayout   = "2006-01-02T15:04:05Z"
	localLayout = "2006-01-02T15:04:05"
)

// DefaultRegions is the region allow-list applied by the package level
// helpers.
var DefaultRegions = []string{
	"Asia",
	"America",
	"Europe",
	"Africa",
	"Australia",
	"Pacific",
	"Atlantic",
	"Indian",
}

var (
	// ErrInvalidTimezone matches any *InvalidTimezoneError.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrConversion matches any *ConversionError.
	ErrConversion = errors.New("timezone conversion failed")
)

// InvalidTimezoneError reports a designator that failed validation.
type InvalidTimezoneError struct {
	Designator string
}

func (e *InvalidTimezoneError) Error() string {
	return fmt.Sprintf("invalid timezone designator: %q", e.Designator)
}

// Is reports whether target is ErrInvalidTimezone.
func (e *InvalidTimezoneError) Is(target error) bool {
	return target == ErrInvalidTimezone
}

// ConversionError reports a failure while formatting a valid designator.
// No current encoding rule produces it.
type ConversionError struct {
	Detail string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("timezone conversion error: %s", e.Detail)
}

// Is reports whether target is ErrConversion.
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

// Kind identifies which of the three designator forms a string uses.
type Kind int

const (
	KindInvalid Kind = iota
	KindUTC
	KindRegion
	KindOffset
)

func (k Kind) String() string {
	switch k {
	case KindUTC:
		return "utc"
	case KindRegion:
		return "region"
	case KindOffset:
		return "offset"
	default:
		return "invalid"
	}
}

// Designator is a validated time zone designator.
type Designator struct {
	Raw  string
	Kind Kind

	// Region and City are set for KindRegion.
	Region string
	City   string

	// Sign, Hours and Minutes are set for KindOffset. Sign is +1 or -1.
	Sign    int
	Hours   int
	Minutes int
}

// OffsetSeconds returns the signed offset from UTC in seconds. It is zero for
// anything but KindOffset.
func (d Designator) OffsetSeconds() int {
	if d.Kind != KindOffset {
		return 0
	}
	return d.Sign * (d.Hours*3600 + d.Minutes*60)
}

// OffsetSuffix returns the "±HH:MM" part of an offset designator exactly as
// it was written.
func (d Designator) OffsetSuffix() string {
	if d.Kind != KindOffset {
		return ""
	}
	return strings.TrimPrefix(d.Raw, gmtPrefix)
}

// Policy controls which Region/City designators are accepted.
type Policy struct {
	// AllowedRegions lists accepted region prefixes. An empty list accepts
	// any pair of non-empty segments.
	AllowedRegions []string
}

// Codec validates and encodes designators under a region policy. A Codec is
// immutable and safe for concurrent use.
type Codec struct {
	regions map[string]struct{}
}

// NewCodec creates a Codec for the given policy.
func NewCodec(policy Policy) *Codec {
	c := &Codec{}
	if len(policy.AllowedRegions) > 0 {
		c.regions = make(map[string]struct{}, len(policy.AllowedRegions))
		for _, r := range policy.AllowedRegions {
			c.regions[r] = struct{}{}
		}
	}
	return c
}

// AllowsAnyRegion reports whether the codec accepts every non-empty region.
func (c *Codec) AllowsAnyRegion() bool {
	return len(c.regions) == 0
}

// Validate reports whether designator is well formed under the codec policy.
func (c *Codec) Validate(designator string) bool {
	_, ok := c.parse(designator)
	return ok
}

// Parse validates designator and returns its decomposed form.
func (c *Codec) Parse(designator string) (Designator, error) {
	d, ok := c.parse(designator)
	if !ok {
		return Designator{}, &InvalidTimezoneError{Designator: designator}
	}
	return d, nil
}

func (c *Codec) parse(s string) (Designator, bool) {
	if s == UTC {
		return Designator{Raw: s, Kind: KindUTC}, true
	}

	if region, city, found := strings.Cut(s, "/"); found {
		if region == "" || city == "" || strings.Contains(city, "/") {
			return Designator{}, false
		}
		if c.regions != nil {
			if _, ok := c.regions[region]; !ok {
				return Designator{}, false
			}
		}
		return Designator{Raw: s, Kind: KindRegion, Region: region, City: city}, true
	}

	if offset, found := strings.CutPrefix(s, gmtPrefix); found {
		sign, hours, minutes, ok := parseOffset(offset)
		if !ok {
			return Designator{}, false
		}
		return Designator{Raw: s, Kind: KindOffset, Sign: sign, Hours: hours, Minutes: minutes}, true
	}

	return Designator{}, false
}

// parseOffset parses "±HH:MM" with hours in [0,23] and minutes in [0,59].
func parseOffset(s string) (sign, hours, minutes int, ok bool) {
	if len(s) != 6 || s[3] != ':' {
		return 0, 0, 0, false
	}
	switch s[0] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return 0, 0, 0, false
	}
	if !isDigits(s[1:3]) || !isDigits(s[4:6]) {
		return 0, 0, 0, false
	}

	hours, err := strconv.Atoi(s[1:3])
	if err != nil {
		return 0, 0, 0, false
	}
	minutes, err = strconv.Atoi(s[4:6])
	if err != nil {
		return 0, 0, 0, false
	}
	if hours > 23 || minutes > 59 {
		return 0, 0, 0, false
	}
	return sign, hours, minutes, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Encode formats t for the dateTime field that accompanies designator.
//
// UTC yields "2006-01-02T15:04:05Z". A GMT offset shifts the wall clock into
// that offset and appends it, e.g. "2024-01-01T09:00:00+09:00" for midnight
// UTC and "GMT+09:00". Region/City yields the UTC wall clock with no suffix,
// the zone itself being sent alongside in timeZone.
func (c *Codec) Encode(t time.Time, designator string) (string, error) {
	d, err := c.Parse(designator)
	if err != nil {
		return "", err
	}
	return d.Format(t)
}

// Format encodes t for an already validated designator.
func (d Designator) Format(t time.Time) (string, error) {
	switch d.Kind {
	case KindUTC:
		return t.UTC().Format(utcLayout), nil
	case KindOffset:
		zone := time.FixedZone(d.Raw, d.OffsetSeconds())
		return t.In(zone).Format(localLayout) + d.OffsetSuffix(), nil
	case KindRegion:
		return t.UTC().Format(localLayout), nil
	default:
		return "", &InvalidTimezoneError{Designator: d.Raw}
	}
}

var defaultCodec = NewCodec(Policy{AllowedRegions: DefaultRegions})

// Validate reports whether designator is valid under DefaultRegions.
func Validate(designator string) bool {
	return defaultCodec.Validate(designator)
}

// Parse parses designator under DefaultRegions.
func Parse(designator string) (Designator, error) {
	return defaultCodec.Parse(designator)
}

// Encode encodes t for designator under DefaultRegions.
func Encode(t time.Time, designator string) (string, error) {
	return defaultCodec.Encode(t, designator)
}
