package discipline

import "errors"

// errNoServersConfigured is returned by attemptServers when cfg.Servers is
// empty; Start's configuration validation is expected to catch this
// before the loop ever runs, so this is a last-resort guard rather than a
// documented runtime error.
var errNoServersConfigured = errors.New("discipline: no servers configured")
