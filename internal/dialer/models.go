package dialer

// Telephony routing configuration. These rows are edited by admin and
// onboarding staff; credential fields are redacted for everyone else.

// Server is a recording/dialer host.
type Server struct {
	ID     int64  `json:"id" db:"id"`
	IP     string `json:"ip" db:"ip"` // supports IPv4 and IPv6
	Alias  string `json:"alias,omitempty" db:"alias"`
	Domain string `json:"domain,omitempty" db:"domain"`
}

type Extension struct {
	ID              int64 `json:"id" db:"id"`
	ExtensionNumber int   `json:"extension_number" db:"extension_number"`
}

// PrimaryDialer fronts the outbound leg of a campaign.
type PrimaryDialer struct {
	ID               int64  `json:"id" db:"id"`
	IPValidationLink string `json:"ip_validation_link,omitempty" db:"ip_validation_link"`
	AdminLink        string `json:"admin_link,omitempty" db:"admin_link"`
	AdminUsername    string `json:"admin_username,omitempty" db:"admin_username"`
	AdminPassword    string `json:"admin_password,omitempty" db:"admin_password"`
	FrontingCampaign string `json:"fronting_campaign,omitempty" db:"fronting_campaign"`
	VerifierCampaign string `json:"verifier_campaign,omitempty" db:"verifier_campaign"`
	Port             int    `json:"port" db:"port"`
}

// CloserDialer handles transferred calls when the settings declare a
// separate closer.
type CloserDialer struct {
	ID               int64  `json:"id" db:"id"`
	IPValidationLink string `json:"ip_validation_link,omitempty" db:"ip_validation_link"`
	AdminLink        string `json:"admin_link,omitempty" db:"admin_link"`
	AdminUsername    string `json:"admin_username,omitempty" db:"admin_username"`
	AdminPassword    string `json:"admin_password,omitempty" db:"admin_password"`
	CloserCampaign   string `json:"closer_campaign" db:"closer_campaign"`
	Ingroup          string `json:"ingroup" db:"ingroup"`
	Port             int    `json:"port" db:"port"`
}

// Settings aggregates the primary dialer and an optional closer for one
// campaign association.
type Settings struct {
	ID                int64          `json:"id" db:"id"`
	HasSeparateCloser bool           `json:"has_separate_closer" db:"has_separate_closer"`
	Primary           PrimaryDialer  `json:"primary_dialer"`
	Closer            *CloserDialer  `json:"closer_dialer,omitempty"`
}

const redactedPlaceholder = "[redacted]"

// Redacted returns a copy with credential fields blanked. Applied at the
// read boundary for callers without CanViewDialerCredentials.
func (s Settings) Redacted() Settings {
	out := s
	out.Primary.AdminUsername = redactIfSet(out.Primary.AdminUsername)
	out.Primary.AdminPassword = redactIfSet(out.Primary.AdminPassword)
	if s.Closer != nil {
		closer := *s.Closer
		closer.AdminUsername = redactIfSet(closer.AdminUsername)
		closer.AdminPassword = redactIfSet(closer.AdminPassword)
		out.Closer = &closer
	}
	return out
}

func redactIfSet(v string) string {
	if v == "" {
		return ""
	}
	return redactedPlaceholder
}
