package ratelimit

import "strconv"

// Key identifies one company's budget within a scope.
type Key struct {
	CompanyID uint64
	Scope     Scope
}

// KeyForCompany builds a limiter key for one company and scope.
func KeyForCompany(companyID uint64, scope Scope) Key {
	return Key{CompanyID: companyID, Scope: scope}
}

// IsZero reports whether the key names no company.
func (k Key) IsZero() bool {
	return k.CompanyID == 0
}

// String renders the key as c:<company>[:<scope>].
func (k Key) String() string {
	if k.IsZero() {
		return ""
	}
	out := "c:" + strconv.FormatUint(k.CompanyID, 10)
	if k.Scope != "" {
		out += ":" + string(k.Scope)
	}
	return out
}
