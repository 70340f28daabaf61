package config

// A Privilege records the elevated roles of one account, keyed by its
// (lowercased) e-mail address. The table is loaded at startup and read-only
// at runtime.
type Privilege struct {
	MayReview                    bool `yaml:"may_review"`
	MayAdminister                bool `yaml:"may_administer"`
	MayQuery                     bool `yaml:"may_query"`
	MayImpersonate               bool `yaml:"may_impersonate"`
	MayReviewQuotas              bool `yaml:"may_review_quotas"`
	MayReceiveEmailNotifications bool `yaml:"may_receive_email_notifications"`
	MayProcessFeedback           bool `yaml:"may_process_feedback"`
	NeedsTwoFactor               bool `yaml:"needs_2fa"`
}

// PrivilegeFor looks up the privileges of an e-mail address. Accounts absent
// from the table have no elevated roles.
func PrivilegeFor(email string) Privilege {
	return Privileges[email]
}
