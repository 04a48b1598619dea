package sekura

import (
	"context"
	"time"

	"github.com/goliatone/go-logger/glog"
)

// Logger is the logging contract used across the package. The default is
// backed by glog; pass your own through the With*Logger builder methods.
type Logger interface {
	Trace(message string, args ...any)
	Debug(message string, args ...any)
	Info(message string, args ...any)
	Warn(message string, args ...any)
	Error(message string, args ...any)
}

func defaultLogger(name string) Logger {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("sekura"),
	)
	return lgr.GetLogger(name)
}

// Config holds client options
type Config interface {
	GetAPIURL() string
	GetRequestTimeout() time.Duration
	GetUserAgent() string
}

// CredentialStore persists the session credential under logical string keys.
// A missing key is reported as ErrCredentialNotFound. Implementations live in
// the store subpackage.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Logical keys used by the SessionManager.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// UserProfile is the immutable account snapshot fetched at login or restore.
type UserProfile struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// TokenSource supplies the current bearer token for outgoing requests.
// SessionManager implements it; an empty string means no token is attached.
type TokenSource interface {
	Token() string
}

// Navigator is the routing surface the NavigationGuard drives. Replace swaps
// the current location without growing history, mirroring how the app shell
// reroutes between the auth and protected areas.
type Navigator interface {
	Replace(area Area)
}
