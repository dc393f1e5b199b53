package measurement

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/medplatform/dossier/internal/platform/apperr"
)

const dateLayout = "2006-01-02"

type Scheme string

const (
	SchemeDirect   Scheme = "direct"
	SchemeCompound Scheme = "compound"
	SchemeLegacy   Scheme = "legacy"
)

// Reference addresses one or more measurement records. It is one of Direct,
// Compound or LegacyDate.
type Reference interface {
	Scheme() Scheme
	String() string
	isReference()
}

// Direct names exactly one record by id.
type Direct struct {
	ID int64
}

// Compound names the mass and stature records of one date. A zero id means
// that half is absent.
type Compound struct {
	MassID    int64
	StatureID int64
}

// LegacyDate names every record of a patient on Date, whatever its kind.
type LegacyDate struct {
	Date time.Time
}

func (Direct) Scheme() Scheme     { return SchemeDirect }
func (Compound) Scheme() Scheme   { return SchemeCompound }
func (LegacyDate) Scheme() Scheme { return SchemeLegacy }

func (Direct) isReference()     {}
func (Compound) isReference()   {}
func (LegacyDate) isReference() {}

func (r Direct) String() string { return strconv.FormatInt(r.ID, 10) }

func (r Compound) String() string {
	var b strings.Builder
	b.WriteByte('p')
	if r.MassID > 0 {
		b.WriteString(strconv.FormatInt(r.MassID, 10))
	}
	b.WriteString("_t")
	if r.StatureID > 0 {
		b.WriteString(strconv.FormatInt(r.StatureID, 10))
	}
	return b.String()
}

func (r LegacyDate) String() string { return "mp_" + r.Date.Format(dateLayout) }

// IDFor returns the id named for kind, or zero.
func (r Compound) IDFor(k Kind) int64 {
	if k == KindMass {
		return r.MassID
	}
	return r.StatureID
}

var (
	directRe   = regexp.MustCompile(`^\d+$`)
	compoundRe = regexp.MustCompile(`^p(\d*)_t(\d*)$`)
	massOnlyRe = regexp.MustCompile(`^p(\d+)$`)
	statOnlyRe = regexp.MustCompile(`^t(\d+)$`)
)

// ParseReference parses the external reference shapes: "12", "p12_t13",
// "p12_t", "p_t13", "p_t", "p12", "t13" and "mp_2024-01-31". "p_t" names no
// record, so an update through it can only create.
func ParseReference(s string) (Reference, error) {
	switch {
	case directRe.MatchString(s):
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		return Direct{ID: id}, nil

	case strings.HasPrefix(s, "mp_"):
		d, err := time.Parse(dateLayout, strings.TrimPrefix(s, "mp_"))
		if err != nil {
			return nil, apperr.Invalid("invalid date in measurement reference %q", s)
		}
		return LegacyDate{Date: d}, nil
	}

	var massPart, statPart string
	if m := compoundRe.FindStringSubmatch(s); m != nil {
		massPart, statPart = m[1], m[2]
	} else if m := massOnlyRe.FindStringSubmatch(s); m != nil {
		massPart = m[1]
	} else if m := statOnlyRe.FindStringSubmatch(s); m != nil {
		statPart = m[1]
	} else {
		return nil, apperr.Invalid("invalid measurement reference %q", s)
	}

	var c Compound
	var err error
	if massPart != "" {
		if c.MassID, err = parseID(massPart); err != nil {
			return nil, err
		}
	}
	if statPart != "" {
		if c.StatureID, err = parseID(statPart); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("invalid measurement id %q", s)
	}
	return id, nil
}
