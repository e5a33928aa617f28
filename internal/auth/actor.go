package auth

// Actor identifies the caller of a state-changing escrow operation and the
// capabilities relevant to the authorization matrix. VendorID is set only
// when the account operates a vendor profile.
type Actor struct {
	AccountID string
	VendorID  string
	IsAdmin   bool
}

// System is the actor used for scheduler-driven transitions.
var System = Actor{AccountID: "system", IsAdmin: true}
