package strava

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// expiryBuffer is how close to expiry a stored access token is still
// trusted.
const expiryBuffer = 60 * time.Second

// TokenAccount is the mutable credential view of a linked account.
type TokenAccount interface {
	Credentials() (accessToken, refreshToken string, expiresAt int64)
	StoreCredentials(accessToken, refreshToken string, expiresAt int64) error
}

// EnsureValidToken returns a usable access token for the account. When the
// stored token expires within the buffer it posts the refresh grant and
// atomically overwrites the stored triple. Concurrent callers serialize on
// the refresh token: the winner posts the grant, the rest re-read the
// stored credentials after the lock and skip the second refresh.
func (o *OAuth) EnsureValidToken(ctx context.Context, account TokenAccount) (string, error) {
	access, refresh, expiresAt := account.Credentials()
	if tokenFresh(expiresAt) {
		return access, nil
	}

	lock := o.refreshLock(refresh)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	access, refresh, expiresAt = account.Credentials()
	if tokenFresh(expiresAt) {
		return access, nil
	}

	bundle, err := o.Refresh(ctx, refresh)
	if err != nil {
		return "", fmt.Errorf("token refresh: %w", err)
	}
	if err := account.StoreCredentials(bundle.AccessToken, bundle.RefreshToken, bundle.ExpiresAt); err != nil {
		return "", fmt.Errorf("persisting refreshed token: %w", err)
	}
	return bundle.AccessToken, nil
}

func tokenFresh(expiresAt int64) bool {
	return expiresAt > time.Now().Add(expiryBuffer).Unix()
}

// refreshLock returns the mutex serializing refreshes of one refresh token.
func (o *OAuth) refreshLock(refreshToken string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.refreshing == nil {
		o.refreshing = map[string]*sync.Mutex{}
	}
	lock, ok := o.refreshing[refreshToken]
	if !ok {
		lock = &sync.Mutex{}
		o.refreshing[refreshToken] = lock
	}
	return lock
}
