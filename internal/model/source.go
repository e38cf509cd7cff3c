package model

import "encoding/json"

// Domain separates on-chain observations from off-chain discourse.
type Domain string

const (
	DomainOnchain  Domain = "onchain"
	DomainOffchain Domain = "offchain"
)

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	return d == DomainOnchain || d == DomainOffchain
}

// Subtype identifies the kind of source an event came from.
type Subtype string

const (
	// On-chain
	SubtypeProgramDeploy Subtype = "program_deploy"
	SubtypeTxActivity    Subtype = "tx_activity"
	SubtypeTokenActivity Subtype = "token_activity"

	// Off-chain
	SubtypeGitHub  Subtype = "github"
	SubtypeTwitter Subtype = "twitter"
	SubtypeRSSBlog Subtype = "rss_blog"
	SubtypeForum   Subtype = "forum"
)

// Subtypes lists every known subtype in declaration order.
var Subtypes = []Subtype{
	SubtypeProgramDeploy,
	SubtypeTxActivity,
	SubtypeTokenActivity,
	SubtypeGitHub,
	SubtypeTwitter,
	SubtypeRSSBlog,
	SubtypeForum,
}

// Valid reports whether s is one of the known subtypes.
func (s Subtype) Valid() bool {
	for _, known := range Subtypes {
		if s == known {
			return true
		}
	}
	return false
}

// Domain returns the domain a subtype belongs to.
func (s Subtype) Domain() Domain {
	switch s {
	case SubtypeProgramDeploy, SubtypeTxActivity, SubtypeTokenActivity:
		return DomainOnchain
	default:
		return DomainOffchain
	}
}

// Label is the short display name used on evidence cards.
func (s Subtype) Label() string {
	switch s {
	case SubtypeGitHub:
		return "GitHub"
	case SubtypeTwitter:
		return "X/Twitter"
	case SubtypeRSSBlog:
		return "Blog"
	case SubtypeForum:
		return "Forum"
	case SubtypeProgramDeploy:
		return "Onchain"
	case SubtypeTxActivity:
		return "Onchain Metrics"
	case SubtypeTokenActivity:
		return "Token Data"
	}
	return string(s)
}

// UnmarshalJSON rejects unknown subtypes so malformed snapshots fail loudly.
func (s *Subtype) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	st := Subtype(raw)
	if !st.Valid() {
		return &UnknownSubtypeError{Value: raw}
	}
	*s = st
	return nil
}

// UnknownSubtypeError is returned when decoding an unrecognised subtype.
type UnknownSubtypeError struct {
	Value string
}

func (e *UnknownSubtypeError) Error() string {
	return "unknown source subtype " + `"` + e.Value + `"`
}
