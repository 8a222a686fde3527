package taos

import (
	"errors"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Config holds everything needed to reach one TDengine REST endpoint. It is
// immutable after construction and owned by the Client for its lifetime.
type Config struct {
	URL      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// Validate reports every configuration fault at once rather than stopping at
// the first, so a misconfigured deployment surfaces all problems in one run.
func (c Config) Validate() error {
	var result *multierror.Error

	if c.URL == "" {
		result = multierror.Append(result, errors.New("url must not be empty"))
	} else if u, err := url.Parse(c.URL); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, errors.New("url must be a valid absolute URL"))
	}

	if c.Username == "" {
		result = multierror.Append(result, errors.New("username must not be empty"))
	}

	if c.Password == "" {
		result = multierror.Append(result, errors.New("password must not be empty"))
	}

	if c.Database == "" {
		result = multierror.Append(result, errors.New("database must not be empty"))
	}

	if c.Timeout <= 0 {
		result = multierror.Append(result, errors.New("timeout must be positive"))
	}

	return result.ErrorOrNil()
}
