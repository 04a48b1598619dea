package sekura

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// BaseConfig is the default Config implementation. Load it from whatever
// configuration source the host app uses and validate before wiring.
type BaseConfig struct {
	APIURL         string        `json:"api_url"`
	RequestTimeout time.Duration `json:"request_timeout"`
	UserAgent      string        `json:"user_agent"`
}

var _ Config = (*BaseConfig)(nil)

func (c *BaseConfig) GetAPIURL() string {
	return c.APIURL
}

func (c *BaseConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return c.RequestTimeout
}

func (c *BaseConfig) GetUserAgent() string {
	if c.UserAgent == "" {
		return "sekura-client"
	}
	return c.UserAgent
}

// Validate will run validation rules
func (c BaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIURL, validation.Required, is.URL),
		validation.Field(&c.RequestTimeout, validation.Min(time.Duration(0))),
	)
}
