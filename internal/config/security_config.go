package config

import (
	"runtime"
	"time"
)

const (
	bcryptCostVar       = "BCRYPT_COST"
	hashWorkersVar      = "HASH_WORKERS"
	storeTimeoutVar     = "STORE_TIMEOUT"
	loginMaxAttempts    = "LOGIN_MAX_ATTEMPTS"
	loginCooldownVar    = "LOGIN_COOLDOWN"
	maxRequestBodyVar   = "MAX_REQUEST_BODY"
	maxUploadBodyVar    = "MAX_UPLOAD_BODY"
	revokeOnLogoutVar   = "REVOKE_ACCESS_ON_LOGOUT"
	defaultBcryptCost   = 10
	MinBcryptCost       = 10
	defaultStoreTimeout = 5 * time.Second
)

type SecurityConfig interface {
	GetBcryptCost() int
	GetHashWorkers() int
	GetStoreTimeout() time.Duration
	GetLoginMaxAttempts() int
	GetLoginCooldown() time.Duration
	GetMaxRequestBody() int64
	GetMaxUploadBody() int64
	// GetRevokeAccessOnLogout reports whether logout also blocks the access
	// token used for it until that token expires.
	GetRevokeAccessOnLogout() bool
}

type Security struct {
	bcryptCost       int
	hashWorkers      int
	storeTimeout     time.Duration
	loginMaxAttempts int
	loginCooldown    time.Duration
	maxRequestBody   int64
	maxUploadBody    int64
	revokeOnLogout   bool
}

var _ SecurityConfig = Security{}

func loadSecurity(r *reader) Security {
	return Security{
		bcryptCost:       r.optionalInt(bcryptCostVar, defaultBcryptCost),
		hashWorkers:      r.optionalInt(hashWorkersVar, runtime.NumCPU()),
		storeTimeout:     r.optionalDuration(storeTimeoutVar, defaultStoreTimeout),
		loginMaxAttempts: r.optionalInt(loginMaxAttempts, 5),
		loginCooldown:    r.optionalDuration(loginCooldownVar, 15*time.Minute),
		maxRequestBody:   int64(r.optionalInt(maxRequestBodyVar, 30*1024)), // 30kb JSON bodies
		maxUploadBody:    int64(r.optionalInt(maxUploadBodyVar, 10*1024*1024)),
		revokeOnLogout:   r.optionalBool(revokeOnLogoutVar, false),
	}
}

func (s Security) GetBcryptCost() int {
	return s.bcryptCost
}

func (s Security) GetHashWorkers() int {
	if s.hashWorkers < 1 {
		return 1
	}
	return s.hashWorkers
}

func (s Security) GetStoreTimeout() time.Duration {
	return s.storeTimeout
}

func (s Security) GetLoginMaxAttempts() int {
	return s.loginMaxAttempts
}

func (s Security) GetLoginCooldown() time.Duration {
	return s.loginCooldown
}

func (s Security) GetMaxRequestBody() int64 {
	return s.maxRequestBody
}

func (s Security) GetMaxUploadBody() int64 {
	return s.maxUploadBody
}

func (s Security) GetRevokeAccessOnLogout() bool {
	return s.revokeOnLogout
}
